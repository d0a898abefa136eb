package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"stripbot/internal/core"
)

// readMessages treats every file as one message. Without files each
// non-blank line of stdin is a message.
func readMessages(stdin io.Reader, files []string) ([]string, error) {
	if len(files) > 0 {
		msgs := make([]string, 0, len(files))
		for _, f := range files {
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f, err)
			}
			msgs = append(msgs, string(b))
		}
		return msgs, nil
	}

	var msgs []string
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			msgs = append(msgs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return msgs, nil
}

func printIssues(w io.Writer, issues []core.TokenIssue) {
	for _, is := range issues {
		fmt.Fprintf(w, "skipped message %d token %q: %v\n", is.MessageIndex+1, is.Text, is.Err)
	}
}
