package lookup

// User-facing error messages.
const (
	MsgInvalidNISN  = "NISN harus 10 digit."
	MsgNotFound     = "NISN tidak ditemukan dalam database. Pastikan input benar."
	MsgLookupFailed = "Terjadi kesalahan pada sistem. Silakan coba lagi."
)
