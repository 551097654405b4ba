package decode

import (
	"encoding/binary"
	"encoding/xml"
	"io"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/OpenAEC-Foundation/open-pointcloud-studio/cloud"
	"github.com/OpenAEC-Foundation/open-pointcloud-studio/mat"
)

// e57Element is a generic XML node, used to walk the e57Root tree without
// a full ASTM schema binding: this decoder only needs cartesianX/Y/Z (or
// the spherical equivalents), the optional color/intensity fields, and
// per-scan pose out of a much larger standard.
type e57Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []e57Element `xml:",any"`
	Text     string       `xml:",chardata"`
}

func (e *e57Element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *e57Element) find(name string) *e57Element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

func (e *e57Element) findAll(name string) []*e57Element {
	var out []*e57Element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

func (e *e57Element) childFloat(name string, def float64) float64 {
	c := e.find(name)
	if c == nil {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
	if err != nil {
		return def
	}
	return v
}

type e57Field struct {
	name      string
	kind      string // "Float" or "Integer"/"ScaledInteger"
	precision string // "single" or "double", for Float
	scale     float64
	offset    float64
	minimum   int64
	maximum   int64
}

// bitWidth is the number of bits an Integer/ScaledInteger field is packed
// into, per the E57 rule b = ceil(log2(maximum-minimum+1)); a field whose
// minimum equals its maximum is a constant stream with b = 0.
func (f e57Field) bitWidth() int {
	if f.kind != "Integer" && f.kind != "ScaledInteger" {
		return 0
	}
	span := f.maximum - f.minimum
	if span <= 0 {
		return 0
	}
	return bits.Len64(uint64(span))
}

func (f e57Field) byteWidth() int {
	if f.kind != "Float" {
		return 0
	}
	if f.precision == "single" {
		return 4
	}
	return 8
}

type e57Pose struct {
	has         bool
	rotation    mat.Quaternion
	translation [3]float64
}

func e57ParsePose(scan *e57Element) e57Pose {
	pose := scan.find("pose")
	if pose == nil {
		return e57Pose{}
	}
	p := e57Pose{has: true, rotation: mat.NewQuaternion(1, 0, 0, 0)}
	if rot := pose.find("rotation"); rot != nil {
		p.rotation = mat.NewQuaternion(
			float32(rot.childFloat("w", 1)),
			float32(rot.childFloat("x", 0)),
			float32(rot.childFloat("y", 0)),
			float32(rot.childFloat("z", 0)),
		)
	}
	if trans := pose.find("translation"); trans != nil {
		p.translation = [3]float64{
			trans.childFloat("x", 0),
			trans.childFloat("y", 0),
			trans.childFloat("z", 0),
		}
	}
	return p
}

const (
	e57HeaderLen        = 48
	e57DefaultPageSize  = 1024
	e57CRCTrailerLen    = 4
	e57SectionHeaderLen = 32
	e57CompressedVecID  = 1
	e57DataPacketType   = 1
)

// readLogicalAt reads n logical (CRC-stripped) bytes starting at the
// physical byte offset *pos, advancing *pos past any page trailers it
// has to skip over. E57 divides the file into fixed pageSize physical
// pages, each carrying a 4-byte CRC in its last 4 bytes; every physical
// offset recorded in the file (xmlPhysicalOffset, dataPhysicalOffset, ...)
// is a position in that striped byte stream, not a logical one. CRC
// values themselves are not verified here -- this decoder trusts the
// container framing and only uses page boundaries to locate data.
func readLogicalAt(data []byte, pos *uint64, n uint64, pageSize uint64) ([]byte, error) {
	if pageSize <= e57CRCTrailerLen {
		pageSize = e57DefaultPageSize
	}
	dataLen := pageSize - e57CRCTrailerLen
	out := make([]byte, 0, n)
	p := *pos
	for uint64(len(out)) < n {
		pageStart := (p / pageSize) * pageSize
		pageDataEnd := pageStart + dataLen
		if p >= pageDataEnd {
			p = pageStart + pageSize
			continue
		}
		avail := pageDataEnd - p
		need := n - uint64(len(out))
		take := avail
		if take > need {
			take = need
		}
		if p+take > uint64(len(data)) {
			return nil, cloud.NewError(cloud.Truncated, "e57 logical read past end of file")
		}
		out = append(out, data[p:p+take]...)
		p += take
	}
	*pos = p
	return out, nil
}

// DecodeE57 reads the subset of ASTM E57 this module supports: a
// page-striped container holding an XML document plus one or more
// CompressedVector binary sections, each framed as a
// CompressedVectorSectionHeader followed by data packets whose
// bytestreams are either byte-aligned Float values or bit-packed
// Integer/ScaledInteger values. Per-scan pose (rotation + translation)
// is applied, and a sphericalRange/Azimuth/Elevation prototype is
// converted to cartesian when cartesianX/Y/Z is absent. A <codecs>
// element on the points node means a non-default (e.g. deflate)
// compressor was used, which this decoder doesn't implement and reports
// as UnsupportedVariant rather than misreading it.
func DecodeE57(r io.Reader) (*cloud.Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "reading e57 file", err)
	}
	if len(data) < e57HeaderLen || string(data[0:8]) != "ASTM-E57" {
		return nil, cloud.NewError(cloud.InvalidSignature, "missing ASTM-E57 signature")
	}

	// Header layout: signature[8] majorVersion(u32) minorVersion(u32)
	// filePhysicalLength(u64) xmlPhysicalOffset(u64) xmlLogicalLength(u64)
	// pageSize(u64).
	xmlPhysOff := binary.LittleEndian.Uint64(data[24:32])
	xmlLogicalLen := binary.LittleEndian.Uint64(data[32:40])
	pageSize := binary.LittleEndian.Uint64(data[40:48])
	if pageSize == 0 {
		pageSize = e57DefaultPageSize
	}

	xmlPos := xmlPhysOff
	xmlBytes, err := readLogicalAt(data, &xmlPos, xmlLogicalLen, pageSize)
	if err != nil {
		return nil, err
	}

	var root e57Element
	if err := xml.Unmarshal(xmlBytes, &root); err != nil {
		return nil, cloud.WrapError(cloud.Truncated, "parsing e57 xml", err)
	}

	data3D := root.find("data3D")
	if data3D == nil {
		return nil, cloud.NewError(cloud.UnsupportedVariant, "e57 file has no data3D section")
	}
	scans := data3D.findAll("vectorChild")
	if len(scans) == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "e57 data3D has no scans")
	}

	b := cloud.NewBuilder()
	var total int
	for _, scan := range scans {
		points := scan.find("points")
		if points == nil {
			continue
		}
		pose := e57ParsePose(scan)
		n, err := decodeE57Points(data, points, pageSize, pose, b)
		if err != nil {
			return nil, err
		}
		total += n
	}
	if total == 0 {
		return nil, cloud.NewError(cloud.EmptyCloud, "e57 contains no points")
	}

	return b.Build("e57", [3]float64{1, 1, 1}, [3]float64{}, 1)
}

func decodeE57Points(data []byte, points *e57Element, pageSize uint64, pose e57Pose, b *cloud.Builder) (int, error) {
	if codecs := points.find("codecs"); codecs != nil && len(codecs.Children) > 0 {
		return 0, cloud.NewError(cloud.UnsupportedVariant, "e57 non-default point codec not supported")
	}

	offStr, _ := points.attr("fileOffset")
	countStr, _ := points.attr("recordCount")
	physOff, err := strconv.ParseUint(offStr, 10, 64)
	if err != nil {
		return 0, cloud.NewError(cloud.Truncated, "e57 points missing fileOffset")
	}
	recordCount, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return 0, cloud.NewError(cloud.Truncated, "e57 points missing recordCount")
	}

	proto := points.find("prototype")
	if proto == nil {
		return 0, cloud.NewError(cloud.UnsupportedVariant, "e57 points missing prototype")
	}
	fields, err := e57ParsePrototype(proto)
	if err != nil {
		return 0, err
	}

	cartesian := hasE57Field(fields, "cartesianX")
	spherical := !cartesian && hasE57Field(fields, "sphericalRange")
	if !cartesian && !spherical {
		return 0, cloud.NewError(cloud.UnsupportedVariant, "e57 prototype has neither cartesian nor spherical coordinates")
	}
	hasColor := hasE57Field(fields, "colorRed")
	hasIntensity := hasE57Field(fields, "intensity")

	values, err := e57ReadSection(data, physOff, pageSize, fields, recordCount)
	if err != nil {
		return 0, err
	}

	stride := cloud.Stride(int(recordCount))
	for i := int64(0); i < recordCount; i++ {
		if i%int64(stride) != 0 {
			continue
		}
		var x, y, z float64
		if spherical {
			rng := e57ValueAt(values, "sphericalRange", i)
			az := e57ValueAt(values, "sphericalAzimuth", i)
			el := e57ValueAt(values, "sphericalElevation", i)
			x = rng * math.Cos(el) * math.Cos(az)
			y = rng * math.Cos(el) * math.Sin(az)
			z = rng * math.Sin(el)
		} else {
			x = e57ValueAt(values, "cartesianX", i)
			y = e57ValueAt(values, "cartesianY", i)
			z = e57ValueAt(values, "cartesianZ", i)
		}
		if pose.has {
			v := pose.rotation.Rotate(mat.NewVec3(float32(x), float32(y), float32(z)))
			x = float64(v[0]) + pose.translation[0]
			y = float64(v[1]) + pose.translation[1]
			z = float64(v[2]) + pose.translation[2]
		}
		var r, g, bl, intensity float32
		if hasColor {
			r = float32(e57ValueAt(values, "colorRed", i) / 255)
			g = float32(e57ValueAt(values, "colorGreen", i) / 255)
			bl = float32(e57ValueAt(values, "colorBlue", i) / 255)
		}
		if hasIntensity {
			intensity = float32(e57ValueAt(values, "intensity", i))
		}
		b.AddPoint(x, y, z, r, g, bl, intensity, 0, hasColor, hasIntensity, false)
	}
	return int(recordCount), nil
}

func e57ValueAt(values map[string][]float64, name string, i int64) float64 {
	v := values[name]
	if int64(len(v)) <= i {
		return 0
	}
	return v[i]
}

func hasE57Field(fields []e57Field, name string) bool {
	for _, f := range fields {
		if f.name == name {
			return true
		}
	}
	return false
}

func e57ParsePrototype(proto *e57Element) ([]e57Field, error) {
	var fields []e57Field
	for _, c := range proto.Children {
		f := e57Field{name: c.XMLName.Local}
		f.kind = elementTypeAttr(&c)
		switch f.kind {
		case "Float":
			prec, _ := c.attr("precision")
			if prec == "" {
				prec = "double"
			}
			f.precision = prec
		case "ScaledInteger":
			scaleStr, _ := c.attr("scale")
			offsetStr, _ := c.attr("offset")
			minStr, _ := c.attr("minimum")
			maxStr, _ := c.attr("maximum")
			f.scale, _ = strconv.ParseFloat(scaleStr, 64)
			f.offset, _ = strconv.ParseFloat(offsetStr, 64)
			f.minimum, _ = strconv.ParseInt(minStr, 10, 64)
			f.maximum, _ = strconv.ParseInt(maxStr, 10, 64)
		case "Integer":
			minStr, _ := c.attr("minimum")
			maxStr, _ := c.attr("maximum")
			f.minimum, _ = strconv.ParseInt(minStr, 10, 64)
			f.maximum, _ = strconv.ParseInt(maxStr, 10, 64)
		default:
			return nil, cloud.NewError(cloud.UnsupportedVariant, "e57 field type "+f.kind+" not supported")
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func elementTypeAttr(e *e57Element) string {
	t, _ := e.attr("type")
	return t
}

// e57ReadSection walks a CompressedVector binary section starting at its
// CompressedVectorSectionHeader (32 bytes: sectionId, 7 reserved bytes,
// sectionLogicalLength u64, dataPhysicalOffset u64, indexPhysicalOffset
// u64) and decodes its data packets (packetType 1: packetLengthMinus1
// u16, bytestreamCount u16, bytestreamCount x bytestreamBufferLength u16,
// then the concatenated per-field bytestreams in prototype order) until
// recordCount values have been collected for every field.
func e57ReadSection(data []byte, physOff uint64, pageSize uint64, fields []e57Field, recordCount int64) (map[string][]float64, error) {
	headerPos := physOff
	header, err := readLogicalAt(data, &headerPos, e57SectionHeaderLen, pageSize)
	if err != nil {
		return nil, err
	}
	if header[0] != e57CompressedVecID {
		return nil, cloud.NewError(cloud.UnsupportedVariant, "e57 compressed vector section id mismatch")
	}
	dataPhysOff := binary.LittleEndian.Uint64(header[16:24])

	values := make(map[string][]float64, len(fields))
	pos := dataPhysOff
	have := int64(0)
	for have < recordCount {
		packetHeader, err := readLogicalAt(data, &pos, 6, pageSize)
		if err != nil {
			return nil, err
		}
		packetType := packetHeader[0]
		packetLen := int(binary.LittleEndian.Uint16(packetHeader[2:4])) + 1
		bytestreamCount := int(binary.LittleEndian.Uint16(packetHeader[4:6]))

		if packetType != e57DataPacketType {
			skip := packetLen - 6
			if skip > 0 {
				if _, err := readLogicalAt(data, &pos, uint64(skip), pageSize); err != nil {
					return nil, err
				}
			}
			continue
		}

		lenTable, err := readLogicalAt(data, &pos, uint64(2*bytestreamCount), pageSize)
		if err != nil {
			return nil, err
		}
		streamLens := make([]int, bytestreamCount)
		for i := 0; i < bytestreamCount; i++ {
			streamLens[i] = int(binary.LittleEndian.Uint16(lenTable[2*i : 2*i+2]))
		}

		headerBytes := 6 + 2*bytestreamCount
		payloadLen := packetLen - headerBytes
		if payloadLen < 0 {
			payloadLen = 0
		}
		payload, err := readLogicalAt(data, &pos, uint64(payloadLen), pageSize)
		if err != nil {
			return nil, err
		}

		recordsInPacket := e57RecordsInPacket(fields, streamLens)
		if recordsInPacket <= 0 {
			break
		}

		streamOff := 0
		for i, f := range fields {
			if i >= len(streamLens) {
				break
			}
			n := streamLens[i]
			if streamOff+n > len(payload) {
				return nil, cloud.NewError(cloud.Truncated, "e57 bytestream shorter than declared")
			}
			values[f.name] = append(values[f.name], decodeE57Bytestream(payload[streamOff:streamOff+n], f, recordsInPacket)...)
			streamOff += n
		}
		have += int64(recordsInPacket)
	}
	return values, nil
}

// e57RecordsInPacket infers how many records a packet holds from whatever
// byte-aligned Float field is in the prototype (the common case: cartesian
// coordinates are almost always Float). If every field is bit-packed, it
// falls back to the first field's own bit width.
func e57RecordsInPacket(fields []e57Field, streamLens []int) int {
	for i, f := range fields {
		if i >= len(streamLens) {
			break
		}
		if w := f.byteWidth(); w > 0 {
			return streamLens[i] / w
		}
	}
	if len(fields) > 0 && len(streamLens) > 0 {
		if w := fields[0].bitWidth(); w > 0 {
			return streamLens[0] * 8 / w
		}
	}
	return 0
}

func decodeE57Bytestream(buf []byte, f e57Field, recordsInPacket int) []float64 {
	out := make([]float64, 0, recordsInPacket)
	switch f.kind {
	case "Float":
		size := f.byteWidth()
		for i := 0; i < recordsInPacket; i++ {
			off := i * size
			if off+size > len(buf) {
				break
			}
			if size == 4 {
				out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:off+4]))))
			} else {
				out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(buf[off:off+8])))
			}
		}
	case "Integer", "ScaledInteger":
		w := f.bitWidth()
		if w == 0 {
			v := float64(f.minimum)
			if f.kind == "ScaledInteger" {
				v = v*f.scale + f.offset
			}
			for i := 0; i < recordsInPacket; i++ {
				out = append(out, v)
			}
			break
		}
		for i := 0; i < recordsInPacket; i++ {
			raw := e57ReadBits(buf, i*w, w)
			v := float64(int64(raw) + f.minimum)
			if f.kind == "ScaledInteger" {
				v = v*f.scale + f.offset
			}
			out = append(out, v)
		}
	}
	return out
}

// e57ReadBits reads width bits starting at bitOffset (0 = the least
// significant bit of buf[0]), LSB-first within each byte, matching E57's
// bit-packed integer encoding.
func e57ReadBits(buf []byte, bitOffset, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		bit := bitOffset + i
		byteIdx := bit / 8
		if byteIdx >= len(buf) {
			break
		}
		bitIdx := uint(bit % 8)
		if buf[byteIdx]&(1<<bitIdx) != 0 {
			v |= 1 << uint(i)
		}
	}
	return v
}
