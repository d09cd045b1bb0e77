package provider

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/lwei/csi800-data/internal/model"
)

// Header column names in the csindex constituents file.
const (
	rosterCodeHeader = "成分券代码"
	rosterNameHeader = "成分券名称"
)

// Constituents downloads and parses the index constituents file.
// The returned slice preserves file order with duplicate codes
// removed. An empty or malformed file is a *RosterError: a run with
// no roster has nothing to do.
func (c *Client) Constituents(ctx context.Context) ([]model.Instrument, error) {
	body, err := c.doWithRetry(ctx, c.rosterURL, nil)
	if err != nil {
		return nil, &RosterError{Reason: "download failed", Err: err}
	}

	instruments, err := parseConstituents(body)
	if err != nil {
		return nil, &RosterError{Reason: "parse failed", Err: err}
	}
	if len(instruments) == 0 {
		return nil, &RosterError{Reason: "empty constituent list"}
	}

	c.logger.Info("resolved index constituents", "count", len(instruments))
	return instruments, nil
}

// parseConstituents decodes the GBK tab-separated file and extracts
// the constituent code and name columns, located via the header row.
func parseConstituents(raw []byte) ([]model.Instrument, error) {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(string(decoded), "\r\n", "\n"), "\n")
	codeIdx, nameIdx := -1, -1

	var out []model.Instrument
	seen := make(map[string]bool)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if codeIdx < 0 {
			for i, f := range fields {
				switch strings.TrimSpace(f) {
				case rosterCodeHeader:
					codeIdx = i
				case rosterNameHeader:
					nameIdx = i
				}
			}
			// Both columns must come from the same header row; a
			// header carrying only one of them is malformed.
			if (codeIdx >= 0) != (nameIdx >= 0) {
				return nil, errMissingHeader
			}
			continue
		}

		if len(fields) <= codeIdx || len(fields) <= nameIdx {
			continue
		}
		code := strings.TrimSpace(fields[codeIdx])
		name := strings.TrimSpace(fields[nameIdx])
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, model.Instrument{Code: code, Name: name})
	}

	if codeIdx < 0 || nameIdx < 0 {
		return nil, errMissingHeader
	}
	return out, nil
}

var errMissingHeader = errors.New("constituent code/name columns not found in header")
