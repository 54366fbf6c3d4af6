package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a random (v4) UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}

// UniqueFileName builds "<prefix><uuid><ext>" and returns the id alongside the name.
// ext may be given with or without the leading dot.
func UniqueFileName(prefix, ext string) (id, name string) {
	id = GenerateUUID()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return id, prefix + id + ext
}
