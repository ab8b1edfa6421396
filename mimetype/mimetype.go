// Enumeration-like type for content mimetypes and client accept preferences.
package mimetype

import (
	"sort"
	"strings"

	"github.com/munnerz/goautoneg"
)

/*
MimeType is used to enumerate the default representation for content encoding types.
Non default MimeTypes can be used by wrapping a custom string:

	MimeType("text/csv")
*/
type MimeType string

const (
	JSON     = MimeType("application/json")
	BSON     = MimeType("application/bson")
	YAML     = MimeType("application/yaml")
	MSGPACK  = MimeType("application/x-msgpack")
	PROTOBUF = MimeType("application/x-protobuf")
	TEXT     = MimeType("text/plain")
	// ANY is what a client that does not state a preference accepts.
	ANY = MimeType("*/*")
	// UNKNOWN is used when the incoming string is blank
	UNKNOWN = MimeType("")
)

// List of default mimeTypes that are encoded to / from objects (as opposed to raw
// text).
var objectMimeTypes = []MimeType{JSON, BSON, YAML, MSGPACK, PROTOBUF}

// Interface for object used to get headers such as http.Request.Header or
// http.Response.Header
type headerFetcher interface {
	Get(string) string
}

// Extract content type from a message / request header.
func FromHeader(headers headerFetcher) MimeType {
	return FromString(headers.Get("Content-Type"))
}

/*
Convert MimeType from a string. Ignores case. If the MimeType is a default type,
multiple formats are respected. For instance, all of the following will yield
"mimetype.MSGPACK":

• "application/x-msgpack"

• "application/msgpack"

• "msgpack"

• "x-msgpack"
*/
func FromString(incoming string) MimeType {
	incoming = strings.ToLower(strings.TrimSpace(incoming))

	if incoming == "" {
		return UNKNOWN
	}
	if incoming == "text/plain" || incoming == "text" {
		return TEXT
	}

	for _, mimeType := range objectMimeTypes {
		subType := strings.Split(string(mimeType), "/")[1]
		subType = strings.TrimPrefix(subType, "x-")
		if strings.HasSuffix(incoming, subType) {
			return mimeType
		}
	}

	return MimeType(incoming)
}

/*
Candidates returns the media types of an Accept header ordered by client preference,
most preferred first. Entries are ranked by quality value, then by specificity
("application/json" before "application/*" before "*\/*"), then by the order they appear
in the header. Media type parameters other than the quality are dropped.

A blank header means the client accepts anything, so ["*\/*"] is returned. Entries with
a quality of 0 are explicitly refused by the client and are left out.
*/
func Candidates(accept string) []string {
	if strings.TrimSpace(accept) == "" {
		return []string{string(ANY)}
	}

	entries := make([]goautoneg.Accept, 0, strings.Count(accept, ",")+1)
	// Entries are parsed one at a time so the header order survives as the final
	// tie-breaker.
	for _, part := range strings.Split(accept, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		for _, entry := range goautoneg.ParseAccept(part) {
			if entry.Q <= 0 || entry.Type == "" {
				continue
			}
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Q != entries[j].Q {
			return entries[i].Q > entries[j].Q
		}
		return specificity(entries[i]) > specificity(entries[j])
	})

	candidates := make([]string, len(entries))
	for index, entry := range entries {
		candidates[index] = entry.Type + "/" + entry.SubType
	}

	return candidates
}

// CandidatesFromHeader extracts the ordered candidate list from the Accept header of a
// request.
func CandidatesFromHeader(headers headerFetcher) []string {
	return Candidates(headers.Get("Accept"))
}

func specificity(entry goautoneg.Accept) int {
	score := 0
	if entry.Type != "*" {
		score++
	}
	if entry.SubType != "*" {
		score++
	}
	return score
}
