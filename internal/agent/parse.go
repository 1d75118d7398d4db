package agent

import (
	"encoding/json"
	"errors"
	"regexp"
)

// Model output is untrusted text: it may wrap the requested JSON in prose
// or return no JSON at all. extractJSON finds the first flat JSON object
// in the response and unmarshals it into out.
var jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)

var errNoJSON = errors.New("no JSON object in model output")

func extractJSON(text string, out any) error {
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return errNoJSON
	}
	return json.Unmarshal([]byte(match), out)
}
