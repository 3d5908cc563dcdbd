package hanja

import (
	"embed"
	"io/fs"
)

//go:embed data/*.txt
var embedded embed.FS

// EmbeddedFS exposes the bundled tables rooted at their directory.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadEmbedded builds the dictionary from the bundled tables.
func LoadEmbedded() (*Dictionary, error) {
	return LoadFS(EmbeddedFS(), LoadOptions{Encoding: EncodingUTF8})
}
