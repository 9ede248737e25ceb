package remotezip

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

const (
	localHeaderSignature = 0x04034b50
	localHeaderFixedSize = 30
)

// Client extracts single named entries from remote containers using only
// byte-range requests. It holds no state between calls.
type Client struct {
	fetcher RangeFetcher
}

func NewClient(fetcher RangeFetcher) *Client {
	return &Client{fetcher: fetcher}
}

// ExtractFile locates name inside the container at url and returns its
// decompressed content. Only the directory structures and the entry's own
// bytes are downloaded.
func (c *Client) ExtractFile(ctx context.Context, url, name string) ([]byte, error) {
	length, err := c.fetcher.ProbeLength(ctx, url)
	if err != nil {
		return nil, err
	}

	record, err := locateDirectory(ctx, c.fetcher, url, length)
	if err != nil {
		return nil, err
	}
	logger.Debug("Located archive directory", "url", url, "entries", record.EntryCount, "size", record.Size)

	directory, err := c.fetcher.FetchRange(ctx, url, int64(record.Offset), int64(record.Offset)+int64(record.Size)-1)
	if err != nil {
		return nil, err
	}

	entry, err := findEntry(directory, name)
	if err != nil {
		return nil, err
	}

	return c.extractPayload(ctx, url, entry)
}

// extractPayload reads the entry's local header to compute the true data
// offset (the local name and extra fields vary per entry and are not
// guaranteed to match the directory's), then fetches and decompresses
// exactly the compressed bytes.
func (c *Client) extractPayload(ctx context.Context, url string, entry EntryDescriptor) ([]byte, error) {
	if entry.CompressedSize == 0 {
		return nil, fmt.Errorf("%w: entry %q has no data", ErrCorrupt, entry.Name)
	}

	headerStart := int64(entry.LocalHeaderOffset)
	header, err := c.fetcher.FetchRange(ctx, url, headerStart, headerStart+localHeaderFixedSize-1)
	if err != nil {
		return nil, err
	}
	if len(header) < localHeaderFixedSize {
		return nil, fmt.Errorf("%w: short local header for %q", ErrCorrupt, entry.Name)
	}
	if binary.LittleEndian.Uint32(header) != localHeaderSignature {
		return nil, fmt.Errorf("%w: bad local header signature for %q", ErrCorrupt, entry.Name)
	}

	nameLen := int64(binary.LittleEndian.Uint16(header[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(header[28:]))
	dataOffset := headerStart + localHeaderFixedSize + nameLen + extraLen

	compressed, err := c.fetcher.FetchRange(ctx, url, dataOffset, dataOffset+int64(entry.CompressedSize)-1)
	if err != nil {
		return nil, err
	}
	if len(compressed) != int(entry.CompressedSize) {
		return nil, fmt.Errorf("%w: got %d of %d compressed bytes for %q",
			ErrCorrupt, len(compressed), entry.CompressedSize, entry.Name)
	}

	switch entry.Method {
	case MethodStored:
		return compressed, nil
	case MethodDeflated:
		reader := flate.NewReader(bytes.NewReader(compressed))
		defer reader.Close()
		inflated, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: inflate of %q failed: %v", ErrCorrupt, entry.Name, err)
		}
		return inflated, nil
	default:
		return nil, fmt.Errorf("%w: storage method %d for %q", ErrUnsupportedFormat, entry.Method, entry.Name)
	}
}
