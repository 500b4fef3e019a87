// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// keyVersion is mixed into every cache key. Bump it when template markup
// changes in a way that should invalidate previously rendered images.
const keyVersion = 1

// keyHashLen is the number of hex characters of the digest kept in a key.
const keyHashLen = 32

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// CacheKey derives the identity of an image from its template name and
// parameters. The digest covers the key version followed by every
// parameter in sorted key order, each name and value written as raw bytes
// behind a length prefix. Any byte of any parameter therefore changes the
// key, invalid UTF-8 included, and map iteration order never does.
//
// Format: <template-slug>-<32 hex chars>
func CacheKey(name string, params Params) string {
	h := sha256.New()
	writeField(h, strconv.Itoa(keyVersion))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		writeField(h, k)
		writeField(h, params[k])
	}
	return Slugify(name) + "-" + hex.EncodeToString(h.Sum(nil))[:keyHashLen]
}

// writeField writes s to h behind its uvarint length.
func writeField(h hash.Hash, s string) {
	var n [binary.MaxVarintLen64]byte
	h.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
	io.WriteString(h, s)
}

// Slugify turns a template name into a lowercase, hyphenated token.
// CamelCase boundaries become hyphens: "HelloWorld" -> "hello-world".
func Slugify(s string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(r)
	}

	result := strings.ToLower(b.String())
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if result == "" {
		return "image"
	}
	return result
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
