/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package messages defines the messages exchanged between the authority,
// the compute server and the client, and the length-prefixed framing they
// are sent in.
//
// Every message is a JSON object in a single frame. A frame is a 4-byte
// big-endian payload length followed by the payload.
package messages

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds the payload of a single frame.
const MaxFrameSize = 64 << 20

// ErrFrameTooLarge is returned for frames longer than MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// WriteFrame writes p as a single frame.
func WriteFrame(w io.Writer, p []byte) error {
	if len(p) > MaxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes", len(p))
	}

	buf := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(buf, uint32(len(p)))
	copy(buf[4:], p)
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// ReadFrame reads a single frame and returns its payload. It returns
// io.EOF if r is closed before the first byte of the frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "read frame header")
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d bytes", n)
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}
	return p, nil
}

// Send encodes msg as JSON and writes it as a single frame.
func Send(w io.Writer, msg interface{}) error {
	p, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "encode %T", msg)
	}
	return WriteFrame(w, p)
}

// Receive reads a single frame and decodes it into msg.
func Receive(r io.Reader, msg interface{}) error {
	p, err := ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(p, msg); err != nil {
		return errors.Wrapf(err, "decode %T", msg)
	}
	return nil
}
