package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// Marker protocol tokens. Every exploit reports its verdict on stdout as
//
//	SBLEEDY_GONZALES DATA: code=<0-4>, data=<text>[ STOP]
const (
	MarkerToken = "SBLEEDY_GONZALES DATA:"
	StopToken   = "STOP"
)

// Diagnostics for output that does not carry a usable verdict
const (
	MessageNoMarker    = "no verdict marker found in exploit output"
	MessageMissingCode = "malformed verdict marker: code field not found"
	MessageMissingData = "malformed verdict marker: data field not found"
)

var (
	markerCodePattern = regexp.MustCompile(`code=(\d+)`)
	markerDataPattern = regexp.MustCompile(`data=(.*)`)

	// STOP only ends the data as a separate word, so "STOPPED" or
	// "BUSSTOP" stay part of it
	markerStopPattern = regexp.MustCompile(`\s` + StopToken + `(\W|$)`)
)

// Classify extracts the verdict an exploit reported in its output.
// Output without a well-formed marker yields VerdictNoSignal; it never fails.
func Classify(raw []byte) (entities.Verdict, string) {
	start := bytes.Index(raw, []byte(MarkerToken))
	if start < 0 {
		return entities.VerdictNoSignal, MessageNoMarker
	}

	span := raw[start+len(MarkerToken):]
	if eol := bytes.IndexByte(span, '\n'); eol >= 0 {
		span = span[:eol]
	}
	if stop := markerStopPattern.FindIndex(span); stop != nil {
		span = span[:stop[0]]
	}

	codeMatch := markerCodePattern.FindSubmatch(span)
	if codeMatch == nil {
		return entities.VerdictNoSignal, MessageMissingCode
	}
	dataMatch := markerDataPattern.FindSubmatch(span)
	if dataMatch == nil {
		return entities.VerdictNoSignal, MessageMissingData
	}

	code, err := strconv.Atoi(string(codeMatch[1]))
	if err != nil {
		return entities.VerdictError, fmt.Sprintf("invalid verdict code %q", codeMatch[1])
	}

	data := strings.TrimSpace(string(dataMatch[1]))
	return entities.VerdictFromCode(code), data
}

// FormatMarker renders the marker line an exploit prints to report a verdict
func FormatMarker(verdict entities.Verdict, data string) string {
	return fmt.Sprintf("%s code=%d, data=%s", MarkerToken, int(verdict), data)
}
