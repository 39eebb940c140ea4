package risk

import (
	"bytes"
	"regexp"
	"strconv"
)

var (
	byteRangeRe = regexp.MustCompile(`/ByteRange\s*\[\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s*\]`)
	sigTypeRe   = regexp.MustCompile(`/Type\s*/Sig\b`)
	encryptRe   = regexp.MustCompile(`/Encrypt\s+\d+\s+\d+\s+R`)
)

// InferSignature reads signature markers from raw PDF bytes. Signatures found
// this way are never verified. A signature is intact when its last signed
// byte range reaches the end of the file.
func InferSignature(data []byte) SignatureInfo {
	ranges := byteRangeRe.FindAllSubmatch(data, -1)
	if len(ranges) == 0 {
		return SignatureInfo{Signed: sigTypeRe.Match(data), Intact: true}
	}

	last := ranges[len(ranges)-1]
	off, _ := strconv.Atoi(string(last[3]))
	n, _ := strconv.Atoi(string(last[4]))
	end := len(bytes.TrimRight(data, "\r\n\t \x00"))
	return SignatureInfo{Signed: true, Intact: off+n >= end}
}

// InferEncrypted reports whether the trailer references an encryption
// dictionary.
func InferEncrypted(data []byte) bool {
	return encryptRe.Match(data)
}
