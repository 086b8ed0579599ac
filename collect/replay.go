// Copyright 2026 gorse Project Authors
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

package collect

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/errors"
)

// Replay publishes every line of r to topic. It returns the number of published lines.
func Replay(ctx context.Context, pub message.Publisher, topic string, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, errors.Trace(err)
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := pub.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte(line))); err != nil {
			return count, errors.Annotatef(err, "failed to publish line %d", count+1)
		}
		count++
	}
	return count, errors.Trace(scanner.Err())
}
