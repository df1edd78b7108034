// Package archive lists the file members of an archive without extracting
// them.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var ErrUnsupportedFormat = errors.New("unsupported archive format")

type Format string

const (
	FormatUnknown Format = ""
	FormatZip     Format = "zip"
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarZst  Format = "tar.zst"
	FormatTarXz   Format = "tar.xz"
	FormatRar     Format = "rar"
	Format7z      Format = "7z"
)

// Member is one regular file inside an archive.
type Member struct {
	Name             string `json:"filename"`
	UncompressedSize uint64 `json:"uncompressed_size"`
}

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magicZipSpan  = []byte("PK\x07\x08")
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicXz       = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicRar      = []byte("Rar!\x1a\x07")
	magic7z       = []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}
	magicUstar    = []byte("ustar")
)

const tarMagicOffset = 257

// Detect identifies the container format from the first bytes of a file.
func Detect(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, magicZip), bytes.HasPrefix(header, magicZipEmpty), bytes.HasPrefix(header, magicZipSpan):
		return FormatZip
	case bytes.HasPrefix(header, magicGzip):
		return FormatTarGz
	case bytes.HasPrefix(header, magicZstd):
		return FormatTarZst
	case bytes.HasPrefix(header, magicXz):
		return FormatTarXz
	case bytes.HasPrefix(header, magicRar):
		return FormatRar
	case bytes.HasPrefix(header, magic7z):
		return Format7z
	case len(header) >= tarMagicOffset+len(magicUstar) && bytes.Equal(header[tarMagicOffset:tarMagicOffset+len(magicUstar)], magicUstar):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Inspect lists the regular files of the archive in r, in archive order.
// Directories, links and other special members are skipped.
func Inspect(r io.ReaderAt, size int64) ([]Member, Format, error) {
	header := make([]byte, 512)
	n, err := r.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, FormatUnknown, fmt.Errorf("read archive header: %w", err)
	}
	format := Detect(header[:n])

	var members []Member
	switch format {
	case FormatZip:
		members, err = listZip(r, size)
	case FormatTar:
		members, err = listTar(io.NewSectionReader(r, 0, size))
	case FormatTarGz:
		members, err = listTarGz(io.NewSectionReader(r, 0, size))
	case FormatTarZst:
		members, err = listTarZst(io.NewSectionReader(r, 0, size))
	case FormatTarXz:
		members, err = listTarXz(io.NewSectionReader(r, 0, size))
	case FormatRar, Format7z:
		return nil, format, fmt.Errorf("%s archives: %w", format, ErrUnsupportedFormat)
	default:
		return nil, format, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, format, err
	}
	return members, format, nil
}

func InspectFile(path string) ([]Member, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("stat archive %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, FormatUnknown, fmt.Errorf("archive %s is a directory", path)
	}
	members, format, err := Inspect(f, info.Size())
	if err != nil {
		return nil, format, fmt.Errorf("inspect %s: %w", path, err)
	}
	return members, format, nil
}

// InspectBytes is Inspect over an in-memory archive.
func InspectBytes(data []byte) ([]Member, Format, error) {
	return Inspect(bytes.NewReader(data), int64(len(data)))
}

func listZip(r io.ReaderAt, size int64) ([]Member, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read zip directory: %w", err)
	}
	members := make([]Member, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members = append(members, Member{Name: f.Name, UncompressedSize: f.UncompressedSize64})
	}
	return members, nil
}

func listTarGz(r io.Reader) ([]Member, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	return listTar(gz)
}

func listTarZst(r io.Reader) ([]Member, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer zr.Close()
	return listTar(zr)
}

func listTarXz(r io.Reader) ([]Member, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return listTar(xr)
}

func listTar(r io.Reader) ([]Member, error) {
	tr := tar.NewReader(r)
	members := make([]Member, 0)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		size := header.Size
		if size < 0 {
			size = 0
		}
		members = append(members, Member{Name: header.Name, UncompressedSize: uint64(size)})
	}
	return members, nil
}
