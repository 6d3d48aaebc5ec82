// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package refseq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/genome"
)

// RemoteJSON fetches reference bases from a REST JSON API (spec §4.3). It is
// used when no local 2-bit cache exists yet for the requested genome.
type RemoteJSON struct {
	// BaseURL is templated with %s=genome, %s=contig, %d=start, %d=end
	// (1-based inclusive, matching most public genome REST APIs).
	BaseURL string
	Genome  string
	Client  *http.Client
}

// NewRemoteJSON returns a RemoteJSON provider with a bounded-timeout client.
func NewRemoteJSON(baseURL, genomeID string) *RemoteJSON {
	return &RemoteJSON{
		BaseURL: baseURL,
		Genome:  genomeID,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type remoteSeqResponse struct {
	DNA string `json:"dna"`
}

// Fetch implements Provider.
func (r *RemoteJSON) Fetch(iv genome.Interval) ([]byte, error) {
	return fetchChunked(iv, r.fetchOne)
}

func (r *RemoteJSON) fetchOne(iv genome.Interval) ([]byte, error) {
	url := fmt.Sprintf(r.BaseURL, r.Genome, iv.ContigID, iv.Start, iv.End-1)
	ctx, cancel := context.WithTimeout(context.Background(), r.Client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "refseq: building request")
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "refseq: fetching %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("refseq: %s returned status %d", url, resp.StatusCode)
	}
	var parsed remoteSeqResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrapf(err, "refseq: decoding response from %s", url)
	}
	bases := []byte(strings.ToUpper(parsed.DNA))
	if int64(len(bases)) != iv.Len() {
		return nil, errors.Errorf("refseq: %s returned %d bases, wanted %d", url, len(bases), iv.Len())
	}
	return bases, nil
}
