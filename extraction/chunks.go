package extraction

import "strings"

// SplitChunks splits a free-form dump into project chunks. A non-blank line
// with no leading indentation starts a new chunk; blank lines are dropped.
func SplitChunks(text string) []string {
	var (
		chunks  []string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		topLevel := !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t")
		if topLevel && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// chunkFor returns the chunk whose first line names title, or document when
// no chunk matches.
func chunkFor(chunks []string, title, document string) string {
	for _, chunk := range chunks {
		head, _, _ := strings.Cut(chunk, "\n")
		if strings.TrimSpace(head) == title {
			return chunk
		}
	}
	for _, chunk := range chunks {
		head, _, _ := strings.Cut(chunk, "\n")
		if strings.Contains(head, title) {
			return chunk
		}
	}
	return document
}
