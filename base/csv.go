// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"bufio"
	"io"
	"strings"

	"github.com/juju/errors"
)

// maxLineSize is the longest line ReadLines accepts.
const maxLineSize = 1 << 20

// ValidateId validates user/movie id. Id cannot be empty or contain '/'.
func ValidateId(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.NotValidf("empty id")
	} else if strings.Contains(text, "/") {
		return errors.NotValidf("id `%v` containing `/`", text)
	}
	return nil
}

// Escape quotes text for csv if it contains a separator, a quote or a line break.
func Escape(text string) string {
	if !strings.ContainsAny(text, ",\"\r\n") {
		return text
	}
	return "\"" + strings.ReplaceAll(text, "\"", "\"\"") + "\""
}

// ReadLines splits each record of a csv stream into fields and passes them to handler with
// the 1-based line number where the record starts. Quoted fields may contain separators,
// doubled quotes and line breaks. Reading stops at the first error returned by handler.
func ReadLines(r io.Reader, sep rune, handler func(lineNumber int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var (
		lineNumber int             // line number of current position
		start      int             // line number where current record starts
		fields     []string        // fields of current record
		builder    strings.Builder // current field
		quoted     bool            // whether current position in quote
	)
	for sc.Scan() {
		lineNumber++
		if quoted {
			builder.WriteString("\r\n")
		} else {
			start = lineNumber
		}
		line := []rune(sc.Text())
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case c == sep && !quoted:
				fields = append(fields, builder.String())
				builder.Reset()
			case c == '"' && !quoted:
				quoted = true
			case c == '"' && i+1 < len(line) && line[i+1] == '"':
				builder.WriteRune('"')
				i++
			case c == '"':
				quoted = false
			default:
				builder.WriteRune(c)
			}
		}
		if quoted {
			continue
		}
		fields = append(fields, builder.String())
		builder.Reset()
		if err := handler(start, fields); err != nil {
			return err
		}
		fields = nil
	}
	if err := sc.Err(); err != nil {
		return errors.Trace(err)
	}
	if quoted {
		return errors.NotValidf("unterminated quote at line %d", start)
	}
	return nil
}
