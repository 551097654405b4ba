package decode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
)

// LazDecompressor is the collaborator a LAZ-capable build injects to turn
// the compressed point-data-record stream back into raw, fixed-layout LAS
// records. No pure-Go LASzip implementation ships in this module; callers
// that need LAZ support wire one in with SetLazDecompressor.
type LazDecompressor interface {
	Decompress(vlr []byte, r io.Reader, recordLen, totalPoints int) ([]byte, error)
}

var lazDecompressor LazDecompressor

// SetLazDecompressor installs the process-wide LAZ decompressor. Passing
// nil disables LAZ support again.
func SetLazDecompressor(d LazDecompressor) {
	lazDecompressor = d
}

const (
	lasZipRecordID = 22204
	lasZipUserID   = "laszip encoded"
)

// DecodeLAZ reads a LASzip-compressed point cloud via the installed
// LazDecompressor. Decoding fails with UnsupportedVariant if none is
// configured, per spec.md's explicit LAZ non-goal for the pure-Go path.
func DecodeLAZ(r io.Reader) (*cloud.Cloud, error) {
	if lazDecompressor == nil {
		return nil, cloud.NewError(cloud.UnsupportedVariant, "laz decoding requires a LazDecompressor; none configured")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading laz file", err)
	}
	h, err := parseLASHeader(data)
	if err != nil {
		return nil, err
	}
	if h.numberOfPoints == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "laz header reports zero points")
	}

	vlr, err := findLASZipVLR(data, h)
	if err != nil {
		return nil, err
	}

	raw, err := lazDecompressor.Decompress(vlr, bytes.NewReader(data[h.offsetToPoints:]), int(h.pointDataRecordLength), int(h.numberOfPoints))
	if err != nil {
		return nil, cloud.WrapError(cloud.BackendError, "laz decompress", err)
	}

	b := cloud.NewBuilder()
	b.SetBounds(h.min, h.max)
	decodeLASRecords(b, raw, h)

	c, err := b.Build("laz", h.scale, h.offset, 1)
	if err != nil {
		return nil, err
	}
	c.Header.LASVersion = lasVersionString(h.versionMajor, h.versionMinor)
	c.Header.PointRecordFormat = h.pointDataFormat
	return c, nil
}

// findLASZipVLR scans the variable-length record block for the LASzip VLR
// (user ID "laszip encoded", record id 22204) and returns its payload.
func findLASZipVLR(data []byte, h *lasHeader) ([]byte, error) {
	vlrStart := 227
	if h.versionMinor >= 3 {
		vlrStart = 235
	}
	if len(data) < 104 {
		return nil, cloud.NewError(cloud.Truncated, "las header too short for VLR count")
	}
	numVLRs := int(binary.LittleEndian.Uint32(data[100:104]))

	offset := vlrStart
	headerEnd := int(h.offsetToPoints)
	for i := 0; i < numVLRs; i++ {
		if offset+54 > headerEnd || offset+54 > len(data) {
			break
		}
		userID := data[offset+2 : offset+18]
		recordID := binary.LittleEndian.Uint16(data[offset+18 : offset+20])
		recordLength := int(binary.LittleEndian.Uint16(data[offset+20 : offset+22]))

		dataStart := offset + 54
		dataEnd := dataStart + recordLength

		if recordID == lasZipRecordID && bytes.HasPrefix(userID, []byte(lasZipUserID)) {
			if dataEnd <= len(data) {
				return data[dataStart:dataEnd], nil
			}
		}
		offset = dataEnd
	}
	return nil, cloud.NewError(cloud.Truncated, "laszip VLR not found in laz file")
}
