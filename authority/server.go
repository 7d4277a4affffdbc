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

// Package authority implements the instance server. For every request of
// the compute server it generates a fresh master key and derives one
// functional key per fuzzy hash vector of the request.
//
// A master key is compromised by as many linearly independent functional
// keys as its dimension, so at most MaxKeys(t) keys are derived per
// master key. The master secret key never leaves the server. Every
// requesting compute server has a quota of keys per time window, kept
// by a Limiter.
package authority

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// MaxKeysPerInstance is the number of functional keys derived at most
// from a single Nilsimsa master key.
const MaxKeysPerInstance = fuzzyhash.NilsimsaBits - 1

var (
	// ErrEmptyBatch is returned for requests without vectors.
	ErrEmptyBatch = errors.New("no vectors in request")
	// ErrTooManyVectors is returned for requests with more than MaxKeys vectors.
	ErrTooManyVectors = errors.New("too many vectors in request")
)

// MaxKeys returns the number of functional keys derived at most from a
// single master key for fuzzy hashes of type t.
func MaxKeys(t fuzzyhash.Type) int {
	return t.VectorBits() - 1
}

// Server is the instance server.
type Server struct {
	grp     group.Group
	limiter Limiter
	rand    io.Reader
	timeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// NewServer returns an instance server generating master keys in grp.
// Issued keys are charged to the quotas of limiter, which may be nil.
func NewServer(grp group.Group, limiter Limiter) *Server {
	return &Server{
		grp:     grp,
		limiter: limiter,
		rand:    rand.Reader,
		timeout: time.Minute,
	}
}

// GenerateInstance generates a fresh master key and derives a functional
// key for every vector of req. The keys are charged to the quota of
// requester.
func (s *Server) GenerateInstance(ctx context.Context, requester string, req *messages.GenerateInstanceRequest) (*messages.GenerateInstanceResponse, error) {
	typ, err := fuzzyhash.ParseType(string(req.Type))
	if err != nil {
		return nil, err
	}
	if len(req.Vectors) == 0 {
		return nil, ErrEmptyBatch
	}
	if max := MaxKeys(typ); len(req.Vectors) > max {
		return nil, errors.Wrapf(ErrTooManyVectors, "got %d, at most %d", len(req.Vectors), max)
	}

	vectors := make([]fuzzyhash.Vector, len(req.Vectors))
	for i, raw := range req.Vectors {
		v, err := checkVector(typ, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "vector %d", i)
		}
		vectors[i] = v
	}

	if s.limiter != nil {
		if err := s.limiter.Reserve(ctx, requester, len(vectors)); err != nil {
			return nil, err
		}
	}

	ddh, err := simple.NewDDH(typ.VectorBits(), big.NewInt(2), s.grp)
	if err != nil {
		return nil, err
	}
	msk, pk, err := ddh.GenerateMasterKeys(s.rand)
	if err != nil {
		return nil, err
	}

	resp := &messages.GenerateInstanceResponse{
		PublicKey: messages.NewPublicKey(pk),
		Keys:      make([]*messages.FunctionalKey, len(vectors)),
	}
	for i, v := range vectors {
		key, err := ddh.DeriveKey(msk, v.Bits())
		if err != nil {
			return nil, errors.Wrapf(err, "derive key %d", i)
		}
		resp.Keys[i] = messages.NewFunctionalKey(key)
	}

	return resp, nil
}

// checkVector accepts only vectors of the form digest || not(digest).
func checkVector(typ fuzzyhash.Type, raw []byte) (fuzzyhash.Vector, error) {
	if len(raw) != 2*typ.DigestSize() {
		return nil, errors.Wrapf(internal.ErrMalformedInput, "got %d bytes, expected %d", len(raw), 2*typ.DigestSize())
	}
	v, err := fuzzyhash.NewNilsimsaVector(raw[:typ.DigestSize()])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(v, raw) {
		return nil, errors.Wrap(internal.ErrMalformedInput, "second half must be the complement of the digest")
	}
	return v, nil
}

// Serve accepts connections on lis until ctx is done or the server is
// closed. Every connection carries a single request.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("server closed")
	}
	s.listener = lis
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()

	glog.Infof("Instance server listening on %v (group %s)", lis.Addr(), s.grp.Name())
	for {
		conn, err := lis.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return errors.Wrap(err, "accept")
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Close stops accepting connections and waits for the pending requests.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	var req messages.GenerateInstanceRequest
	if err := messages.Receive(conn, &req); err != nil {
		glog.Errorf("Failed to read request from %v: %v", conn.RemoteAddr(), err)
		return
	}
	glog.V(1).Infof("Received %d %s vectors from %v", len(req.Vectors), req.Type, conn.RemoteAddr())

	resp, err := s.GenerateInstance(ctx, requester(conn.RemoteAddr()), &req)
	if err != nil {
		glog.Warningf("Rejected request from %v: %v", conn.RemoteAddr(), err)
		resp = &messages.GenerateInstanceResponse{Error: err.Error()}
	} else {
		glog.Infof("Issued %d keys for %v", len(resp.Keys), resp.PublicKey.Epoch)
	}

	if err := messages.Send(conn, resp); err != nil {
		glog.Errorf("Failed to send response to %v: %v", conn.RemoteAddr(), err)
	}
}

// requester identifies a peer by its host, so that all connections of
// a compute server share its quota.
func requester(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
