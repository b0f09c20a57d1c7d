package entity

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Prompt struct {
	System string
	User   string
}

const mockSystemPrompt = `You are a fake API response generator. Given an HTTP request, generate a realistic JSON response. The JSON response should just contain a body that makes sense for the specific response, and things like "status", "timestamp", "request_id" or other useless fields not directly related to the request shouldn't be returned.
Do NOT include any markdown formatting or code blocks. Respond with raw JSON only. Strive not to return 'example.com' or something similar, you should strive for the links you are sending to be working.`

const schemaConstraint = `This endpoint has a specific schema that MUST be followed:
%s

You MUST use exactly this schema structure, changing only the values to be appropriate for the current request parameters. The field names and nested structure must remain identical.`

// BuildMockPrompt renders the instruction pair for one mock request. A non-empty
// schema is embedded verbatim as a structural constraint. The output depends
// only on its inputs.
func BuildMockPrompt(req MockRequest, schema string) Prompt {
	var b strings.Builder

	b.WriteString("Generate a fake API response based on the following request:\n\n")
	fmt.Fprintf(&b, "- Method: %s\n", req.Method)
	fmt.Fprintf(&b, "- Path: %s\n", req.FullPath())
	b.WriteString("- Headers:\n")
	for _, line := range promptHeaders(req.Headers) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	body := req.Body
	if body == "" {
		body = "None"
	}
	fmt.Fprintf(&b, "- Body: %s\n", body)

	if schema != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, schemaConstraint, schema)
		b.WriteString("\n")
	}

	b.WriteString("\nReply ONLY with raw JSON. No explanation. No markdown.")

	return Prompt{
		System: mockSystemPrompt,
		User:   b.String(),
	}
}

func promptHeaders(h http.Header) []string {
	lines := make([]string, 0, len(h))
	for name, values := range h {
		if IsControlHeader(name) {
			continue
		}
		lines = append(lines, http.CanonicalHeaderKey(name)+": "+strings.Join(values, ", "))
	}
	sort.Strings(lines)
	return lines
}

// IsControlHeader reports whether name is one of the service's own headers.
func IsControlHeader(name string) bool {
	return strings.EqualFold(name, HeaderAuthorization) || strings.EqualFold(name, HeaderRefresh)
}
