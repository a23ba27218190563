package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

var reFirstObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseObject reads a single JSON object from model output: the whole text
// first, then the outermost {...} span. Anything else is MalformedModelOutput.
func ParseObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.MalformedModelOutput("empty response", nil)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, nil
	}

	block := reFirstObject.FindString(text)
	if block == "" {
		return nil, common.MalformedModelOutput("no JSON object in response", nil)
	}
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, common.MalformedModelOutput("invalid JSON object", err)
	}
	if obj == nil {
		return nil, common.MalformedModelOutput("JSON was not an object", errors.New("null"))
	}
	return obj, nil
}
