package model

import (
	"encoding/xml"
	"fmt"
	"io"
)

// JUnitReport is the subset of the JUnit XML format the Tricentis client emits.
type JUnitReport struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr,omitempty"`
	Suites   []JUnitSuite `xml:"testsuite"`
	Duration float64      `xml:"time,attr,omitempty"`
}

type JUnitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Duration float64     `xml:"time,attr"`
	Cases    []JUnitCase `xml:"testcase"`
}

type JUnitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Duration  float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure"`
	Error     *JUnitFailure `xml:"error"`
	Skipped   *JUnitSkipped `xml:"skipped"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr"`
}

// JUnitStats counts test cases by outcome.
type JUnitStats struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
	Skipped int
}

func (s JUnitStats) HasFailures() bool {
	return s.Failed > 0 || s.Errored > 0
}

// ParseJUnit reads either a <testsuites> document or a single <testsuite>.
func ParseJUnit(r io.Reader) (JUnitReport, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return JUnitReport{}, err
	}

	var report JUnitReport
	if err := xml.Unmarshal(raw, &report); err == nil {
		return report, nil
	}

	var suite JUnitSuite
	if err := xml.Unmarshal(raw, &suite); err != nil {
		return JUnitReport{}, fmt.Errorf("%w: %w", ErrUnknownResults, err)
	}
	return JUnitReport{Suites: []JUnitSuite{suite}}, nil
}

// Stats computes counts from the test cases, the suite attributes are
// used only for suites without any test case.
func (r JUnitReport) Stats() JUnitStats {
	var s JUnitStats
	for _, suite := range r.Suites {
		if len(suite.Cases) == 0 {
			s.Total += suite.Tests
			s.Failed += suite.Failures
			s.Errored += suite.Errors
			s.Skipped += suite.Skipped
			s.Passed += max(suite.Tests-suite.Failures-suite.Errors-suite.Skipped, 0)
			continue
		}
		for _, c := range suite.Cases {
			s.Total++
			switch {
			case c.Failure != nil:
				s.Failed++
			case c.Error != nil:
				s.Errored++
			case c.Skipped != nil:
				s.Skipped++
			default:
				s.Passed++
			}
		}
	}
	return s
}
