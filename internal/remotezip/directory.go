package remotezip

import (
	"context"
	"encoding/binary"
	"fmt"
)

const (
	eocdSignature       = 0x06054b50
	centralDirSignature = 0x02014b50

	eocdMinSize          = 22
	centralDirFixedSize  = 46
	directoryTailWindow  = 64 * 1024
	zip64DirectorySentry = 0xFFFFFFFF
)

// Storage methods from the container format. Anything else is rejected as
// unsupported.
const (
	MethodStored   = 0
	MethodDeflated = 8
)

// DirectoryRecord is the parsed end-of-directory marker.
type DirectoryRecord struct {
	Size       uint32
	Offset     uint32
	EntryCount uint16
}

// EntryDescriptor is one scanned directory entry.
type EntryDescriptor struct {
	Name              string
	Method            uint16
	CompressedSize    uint32
	UncompressedSize  uint32
	LocalHeaderOffset uint32
}

// locateDirectory fetches the tail window of the container, scans backward
// for the end-of-directory signature and parses the marker. The window is
// never widened: an archive whose marker falls outside it (a very large
// comment field) fails for this candidate URL.
func locateDirectory(ctx context.Context, fetcher RangeFetcher, url string, length int64) (DirectoryRecord, error) {
	if length < eocdMinSize {
		return DirectoryRecord{}, fmt.Errorf("%w: container of %d bytes is too small", ErrCorrupt, length)
	}

	window := int64(directoryTailWindow)
	if window > length {
		window = length
	}
	tail, err := fetcher.FetchRange(ctx, url, length-window, length-1)
	if err != nil {
		return DirectoryRecord{}, err
	}

	pos := -1
	for i := len(tail) - eocdMinSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:]) == eocdSignature {
			pos = i
			break
		}
	}
	if pos < 0 {
		return DirectoryRecord{}, fmt.Errorf("%w: end-of-directory marker not in %d byte tail window", ErrCorrupt, window)
	}

	record := DirectoryRecord{
		EntryCount: binary.LittleEndian.Uint16(tail[pos+10:]),
		Size:       binary.LittleEndian.Uint32(tail[pos+12:]),
		Offset:     binary.LittleEndian.Uint32(tail[pos+16:]),
	}

	if record.Offset == zip64DirectorySentry {
		return DirectoryRecord{}, fmt.Errorf("%w: zip64 directory", ErrUnsupportedFormat)
	}
	if int64(record.Offset)+int64(record.Size) > length {
		return DirectoryRecord{}, fmt.Errorf("%w: directory %d+%d exceeds container length %d",
			ErrCorrupt, record.Offset, record.Size, length)
	}
	return record, nil
}

// findEntry scans the directory index buffer entry-by-entry for an exact
// name match. A signature mismatch or a truncated entry means the size
// accounting is broken and the index is unusable.
func findEntry(directory []byte, name string) (EntryDescriptor, error) {
	pos := 0
	for pos < len(directory) {
		if pos+centralDirFixedSize > len(directory) {
			return EntryDescriptor{}, fmt.Errorf("%w: truncated directory entry at offset %d", ErrCorrupt, pos)
		}
		if binary.LittleEndian.Uint32(directory[pos:]) != centralDirSignature {
			return EntryDescriptor{}, fmt.Errorf("%w: bad directory entry signature at offset %d", ErrCorrupt, pos)
		}

		nameLen := int(binary.LittleEndian.Uint16(directory[pos+28:]))
		extraLen := int(binary.LittleEndian.Uint16(directory[pos+30:]))
		commentLen := int(binary.LittleEndian.Uint16(directory[pos+32:]))

		nameStart := pos + centralDirFixedSize
		if nameStart+nameLen > len(directory) {
			return EntryDescriptor{}, fmt.Errorf("%w: entry name runs past directory end at offset %d", ErrCorrupt, pos)
		}

		if string(directory[nameStart:nameStart+nameLen]) == name {
			return EntryDescriptor{
				Name:              name,
				Method:            binary.LittleEndian.Uint16(directory[pos+10:]),
				CompressedSize:    binary.LittleEndian.Uint32(directory[pos+20:]),
				UncompressedSize:  binary.LittleEndian.Uint32(directory[pos+24:]),
				LocalHeaderOffset: binary.LittleEndian.Uint32(directory[pos+42:]),
			}, nil
		}

		pos = nameStart + nameLen + extraLen + commentLen
	}
	if pos != len(directory) {
		return EntryDescriptor{}, fmt.Errorf("%w: directory scan overran declared size", ErrCorrupt)
	}
	return EntryDescriptor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}
