package ai

import (
	"encoding/json"
	"strings"
)

// Sink receives incremental text deltas as they are decoded from a streaming
// response. A nil Sink is valid and discards nothing but the forwarding.
type Sink func(delta string) error

const streamDoneSentinel = "[DONE]"

// StreamDecoder turns arbitrarily-chunked server-sent-event bytes into text
// deltas. It accumulates the full text itself and returns the deltas of each
// Feed call to the caller, so decoding is testable without any transport and
// the forward-to-sink effect stays outside the decoder.
type StreamDecoder struct {
	pending strings.Builder
	full    strings.Builder
	done    bool
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Feed consumes one transport chunk and returns the text deltas completed by
// it. Partial lines are buffered until the next chunk.
func (d *StreamDecoder) Feed(chunk []byte) ([]string, error) {
	if d.done {
		return nil, nil
	}
	d.pending.Write(chunk)

	buffered := d.pending.String()
	lines := strings.Split(buffered, "\n")
	// The final element is an incomplete line; keep it for the next chunk.
	remainder := lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	d.pending.Reset()
	d.pending.WriteString(remainder)

	var deltas []string
	for _, line := range lines {
		delta, end, err := d.decodeLine(line)
		if err != nil {
			return deltas, err
		}
		if end {
			d.done = true
			break
		}
		if delta != "" {
			d.full.WriteString(delta)
			deltas = append(deltas, delta)
		}
	}
	return deltas, nil
}

// Close decodes any buffered remainder. Call it once the transport reports
// end of stream.
func (d *StreamDecoder) Close() ([]string, error) {
	if d.done || d.pending.Len() == 0 {
		return nil, nil
	}
	line := d.pending.String()
	d.pending.Reset()

	delta, end, err := d.decodeLine(line)
	if err != nil {
		return nil, err
	}
	if end {
		d.done = true
		return nil, nil
	}
	if delta == "" {
		return nil, nil
	}
	d.full.WriteString(delta)
	return []string{delta}, nil
}

func (d *StreamDecoder) decodeLine(line string) (delta string, end bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data:") {
		return "", false, nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == streamDoneSentinel {
		return "", true, nil
	}

	var frame streamFrame
	if jsonErr := json.Unmarshal([]byte(payload), &frame); jsonErr != nil {
		return "", false, &ParseError{Message: "malformed stream frame: " + jsonErr.Error()}
	}
	if len(frame.Choices) == 0 {
		return "", false, nil
	}
	return frame.Choices[0].Delta.Content, false, nil
}

// Text returns the accumulated text decoded so far.
func (d *StreamDecoder) Text() string { return d.full.String() }

// Done reports whether the end-of-stream sentinel has been seen.
func (d *StreamDecoder) Done() bool { return d.done }
