// Package generator produces the personal message shown next to a
// student's graduation status. The text comes from a generative model;
// when the model fails the generator substitutes a canned message, so
// Generate always returns something presentable.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aanand-mishra/graduation-api/internal/types"
)

// Canned messages used when the model cannot help.
const (
	// FallbackEmpty replaces a successful but empty model response.
	FallbackEmpty = "Selamat menempuh babak baru dalam hidupmu!"

	// FallbackPassed and FallbackNotPassed replace a failed model call.
	FallbackPassed    = "Selamat atas kelulusanmu! Masa depan cerah menantimu di luar sana."
	FallbackNotPassed = "Silakan hubungi bagian administrasi sekolah untuk informasi lebih lanjut."
)

// Model turns a prompt into text.
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator builds prompts from student records and asks a Model for the
// message.
type Generator struct {
	model   Model
	timeout time.Duration
	log     *slog.Logger
}

// New returns a Generator. A zero timeout means the caller's context is
// the only bound on a model call.
func New(model Model, timeout time.Duration, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{model: model, timeout: timeout, log: log}
}

// Generate returns the model's message for student, or a fallback.
// It never fails: model errors are logged and replaced.
func (g *Generator) Generate(ctx context.Context, student types.Student) string {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.model.GenerateText(ctx, BuildPrompt(student))
	if err != nil {
		g.log.Error("message generation failed, using fallback",
			slog.String("nisn", student.NISN),
			slog.String("status", string(student.Status)),
			slog.String("error", err.Error()))
		return Fallback(student.Status)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.log.Warn("model returned empty message", slog.String("nisn", student.NISN))
		return FallbackEmpty
	}

	return text
}

// Fallback picks the canned message for a failed model call.
func Fallback(status types.GraduationStatus) string {
	if status.Passed() {
		return FallbackPassed
	}
	return FallbackNotPassed
}

const promptTemplate = `Anda adalah AI asisten dari SMAN 1 TOJO.
Berikan pesan singkat (maksimal 3 kalimat) yang sangat menginspirasi, puitis, dan modern untuk siswa bernama %s dari kelas %s.
Status kelulusan: %s.

%s

Gunakan gaya bahasa anak muda tahun 2026 yang sopan tapi keren.`

const (
	instructionPassed  = "Berikan ucapan selamat yang hangat atas kelulusan tahun 2026 dan dorongan untuk masa depan."
	instructionPending = "Berikan pesan motivasi agar tidak menyerah dan segera menghubungi pihak sekolah untuk administrasi."
)

// BuildPrompt renders the instruction sent to the model for student.
// Passed students get congratulations; everyone else gets encouragement
// and a nudge to contact the school.
func BuildPrompt(student types.Student) string {
	instruction := instructionPending
	if student.Status.Passed() {
		instruction = instructionPassed
	}
	return fmt.Sprintf(promptTemplate,
		student.Name, student.ClassName, student.Status.Label(), instruction)
}
