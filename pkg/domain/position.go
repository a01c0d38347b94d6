package domain

import (
	"strings"

	dErrors "draftline/pkg/domain-errors"
)

// Position is a prospect's playing position. Matching clusters candidates
// by position, and the quality validator keys statistic ranges off it.
type Position string

const (
	PositionQB   Position = "QB"
	PositionRB   Position = "RB"
	PositionWR   Position = "WR"
	PositionTE   Position = "TE"
	PositionOT   Position = "OT"
	PositionOG   Position = "OG"
	PositionC    Position = "C"
	PositionEDGE Position = "EDGE"
	PositionDT   Position = "DT"
	PositionLB   Position = "LB"
	PositionCB   Position = "CB"
	PositionS    Position = "S"
	PositionK    Position = "K"
	PositionP    Position = "P"
)

var validPositions = map[Position]bool{
	PositionQB: true, PositionRB: true, PositionWR: true, PositionTE: true,
	PositionOT: true, PositionOG: true, PositionC: true, PositionEDGE: true,
	PositionDT: true, PositionLB: true, PositionCB: true, PositionS: true,
	PositionK: true, PositionP: true,
}

// positionAliases maps source spellings onto the canonical set. Sources
// disagree on defensive-front naming in particular.
var positionAliases = map[string]Position{
	"DE":  PositionEDGE,
	"OLB": PositionLB,
	"ILB": PositionLB,
	"MLB": PositionLB,
	"FS":  PositionS,
	"SS":  PositionS,
	"G":   PositionOG,
	"T":   PositionOT,
	"NT":  PositionDT,
}

// ParsePosition constructs a Position from external input, folding known
// source-specific aliases onto the canonical set.
func ParsePosition(s string) (Position, error) {
	up := Position(strings.ToUpper(strings.TrimSpace(s)))
	if up == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "position cannot be empty")
	}
	if alias, ok := positionAliases[string(up)]; ok {
		return alias, nil
	}
	if !validPositions[up] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown position %q", s)
	}
	return up, nil
}

func (p Position) IsValid() bool  { return validPositions[p] }
func (p Position) String() string { return string(p) }
