package llm

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const maxSSELine = 1 << 20

// readSSE calls fn once per server-sent event. Multiple data lines of one
// event are joined with newlines. fn returns stop=true to end early.
func readSSE(r io.Reader, fn func(event, data string) (stop bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var event string
	var data []string

	dispatch := func() (bool, error) {
		if len(data) == 0 {
			event = ""
			return false, nil
		}
		stop, err := fn(event, strings.Join(data, "\n"))
		event, data = "", data[:0]
		return stop, err
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if stop, err := dispatch(); stop || err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	_, err := dispatch()
	return err
}

// streamChunks runs read in a goroutine and forwards what it emits. A read
// error becomes the final chunk.
func streamChunks(ctx context.Context, body io.ReadCloser, read func(emit func(string) bool) error) <-chan Chunk {
	ch := make(chan Chunk, 16)

	go func() {
		defer close(ch)
		defer body.Close()

		send := func(c Chunk) bool {
			select {
			case ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := read(func(text string) bool {
			return send(Chunk{Text: text})
		})
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			send(Chunk{Err: err})
		}
	}()

	return ch
}
