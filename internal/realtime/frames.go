package realtime

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Frame is one dispatched text/event-stream message.
type Frame struct {
	ID    int64
	Event string
	Data  string
}

// ReadFrames parses a text/event-stream body and calls fn for each complete frame. Comment
// lines are ignored. It returns nil at EOF, or the first error from fn.
func ReadFrames(r io.Reader, fn func(Frame) error) error {
	reader := bufio.NewReader(r)
	var (
		cur     Frame
		data    strings.Builder
		hasData bool
	)
	dispatch := func() error {
		if !hasData && cur.Event == "" {
			cur = Frame{}
			return nil
		}
		cur.Data = data.String()
		f := cur
		cur = Frame{}
		data.Reset()
		hasData = false
		return fn(f)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line == "" && err == io.EOF {
			return nil
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if dErr := dispatch(); dErr != nil {
				return dErr
			}
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "id":
				if n, pErr := strconv.ParseInt(value, 10, 64); pErr == nil {
					cur.ID = n
				}
			case "event":
				cur.Event = value
			case "data":
				if hasData {
					data.WriteByte('\n')
				}
				data.WriteString(value)
				hasData = true
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}
