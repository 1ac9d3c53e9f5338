// Package native binds functions exported by shared libraries.
//
// A library symbol is called through purego, without cgo. The declared
// signature maps to C types as follows:
//
//	Kind     C type
//	──────────────────────
//	int      int64_t / long (LP64)
//	float    double
//	bool     _Bool
//
// Unlike engine, nothing here can verify that a symbol really has the
// declared signature; a wrong declaration is undefined behavior at the C
// level.
//
// Binding is supported on Linux, macOS, FreeBSD and NetBSD for amd64 and
// arm64. Elsewhere Open fails with errors.KindUnsupported.
package native
