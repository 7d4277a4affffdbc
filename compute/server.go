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

// Package compute implements the compute server. It holds a database of
// fuzzy hashes and, for every client, learns the best similarity score
// between the client's encrypted hash and the stored hashes, without
// learning the client's hash.
//
// Stored hashes are sent to the authority in batches; for every batch
// the authority returns a fresh public key and one functional key per
// hash. The client encrypts its hash under every public key, and the
// server decrypts the inner products with the functional keys.
package compute

import (
	"context"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/fentec-project/fuzzyfe/authority"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/messages"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// HashStore provides the stored fuzzy hashes.
type HashStore interface {
	HashesByType(ctx context.Context, typ fuzzyhash.Type) ([][]byte, error)
}

// Options tune a Server.
type Options struct {
	// BatchSize is the number of hashes compared per public key. It may
	// not exceed authority.MaxKeysPerInstance.
	BatchSize int
	// Workers bounds the number of concurrent decryptions.
	Workers int
	// Timeout bounds a whole client session.
	Timeout time.Duration
}

// Server is the compute server.
type Server struct {
	grp    group.Group
	ddh    *simple.DDH
	hashes HashStore
	keys   KeySource
	opts   Options

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// NewServer returns a compute server comparing against the hashes in
// store, with keys issued in grp by keys.
func NewServer(grp group.Group, store HashStore, keys KeySource, opts Options) (*Server, error) {
	if opts.BatchSize < 1 || opts.BatchSize > authority.MaxKeysPerInstance {
		return nil, errors.Errorf("batch size must be in [1, %d]", authority.MaxKeysPerInstance)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	ddh, err := simple.NewDDH(fuzzyhash.NilsimsaBits, big.NewInt(2), grp)
	if err != nil {
		return nil, err
	}
	if err := ddh.Precompute(fuzzyhash.InnerProductRange); err != nil {
		return nil, err
	}

	return &Server{
		grp:    grp,
		ddh:    ddh,
		hashes: store,
		keys:   keys,
		opts:   opts,
	}, nil
}

// Serve accepts client connections on lis until ctx is done or the
// server is closed.
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

	glog.Infof("Compute server listening on %v (group %s)", lis.Addr(), s.grp.Name())
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
			defer conn.Close()

			ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
			if deadline, ok := ctx.Deadline(); ok {
				conn.SetDeadline(deadline)
			}

			glog.Infof("Client %v connected", conn.RemoteAddr())
			if err := s.Compare(ctx, conn); err != nil {
				glog.Errorf("Comparison with %v failed: %v", conn.RemoteAddr(), err)
				return
			}
			glog.Infof("Comparison with %v done", conn.RemoteAddr())
		}()
	}
}

// Close stops accepting connections and waits for the running sessions.
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

// Compare runs a comparison session with the client on rw.
func (s *Server) Compare(ctx context.Context, rw io.ReadWriter) error {
	var req messages.HashComparisonRequest
	if err := messages.Receive(rw, &req); err != nil {
		return errors.Wrap(err, "read comparison request")
	}
	typ, err := fuzzyhash.ParseType(string(req.Type))
	if err != nil {
		return err
	}

	digests, err := s.hashes.HashesByType(ctx, typ)
	if err != nil {
		return err
	}
	glog.V(1).Infof("Loaded %d %s hashes", len(digests), typ)

	vectors := make([]fuzzyhash.Vector, len(digests))
	for i, d := range digests {
		if vectors[i], err = fuzzyhash.NewNilsimsaVector(d); err != nil {
			return err
		}
	}

	var best *int64
	for start := 0; start < len(vectors); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[start:end]

		pk, keys, err := s.keys.GenerateInstance(ctx, typ, batch)
		if err != nil {
			return errors.Wrap(err, "retrieve keys")
		}
		glog.V(1).Infof("Received %d keys for %v", len(keys), pk.Epoch)

		if err := messages.Send(rw, &messages.EncryptionRequest{
			PublicKey: messages.NewPublicKey(pk),
			Score:     best,
		}); err != nil {
			return errors.Wrap(err, "send encryption request")
		}

		var resp messages.EncryptionResponse
		if err := messages.Receive(rw, &resp); err != nil {
			return errors.Wrap(err, "read encryption response")
		}
		if resp.EndOfComparison {
			glog.V(1).Info("Client ended the comparison")
			return nil
		}
		if resp.Ciphertext == nil {
			return internal.ErrMalformedCipher
		}
		ct, err := resp.Ciphertext.Decode(s.grp)
		if err != nil {
			return err
		}

		score, err := s.bestScore(ctx, ct, keys, batch)
		if err != nil {
			return err
		}
		if best == nil || score > *best {
			best = &score
		}
	}

	return messages.Send(rw, &messages.EncryptionRequest{Score: best})
}

// bestScore decrypts the similarity of ct to every vector of the batch
// and returns the highest one.
func (s *Server) bestScore(ctx context.Context, ct *simple.Ciphertext, keys []*simple.FunctionalKey, batch []fuzzyhash.Vector) (int64, error) {
	scores := make([]int64, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range batch {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ip, err := s.ddh.Decrypt(ct, keys[i], batch[i].Bits(), fuzzyhash.InnerProductRange)
			if err != nil {
				return errors.Wrapf(err, "decrypt score %d", i)
			}
			scores[i] = fuzzyhash.ScoreFromInnerProduct(ip)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	best := scores[0]
	for _, v := range scores[1:] {
		if v > best {
			best = v
		}
	}
	return best, nil
}
