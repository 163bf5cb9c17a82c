package command

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorName is the file inline test events are written to. It is
// overwritten by every build, two builds must not share a workspace.
const DescriptorName = "temp-jenkins-tricentis.xml"

const (
	descriptorStart = "<?xml version=\"1.0\" encoding=\"utf-8\" ?>\n\n<testConfiguration>\n\n   <TestEvents>"
	descriptorEnd   = "\n    </TestEvents>\n\n</testConfiguration>"
	eventStart      = "\n        <TestEvent>"
	eventEnd        = "</TestEvent>"
)

// DescriptorWriter writes a test configuration listing test events into
// DescriptorName in the workspace.
type DescriptorWriter struct{}

func (DescriptorWriter) Write(workspace string, events []string) (string, error) {
	root, err := os.OpenRoot(workspace)
	if err != nil {
		return "", fmt.Errorf("opening workspace: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	if err := root.WriteFile(DescriptorName, Descriptor(events), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", DescriptorName, err)
	}

	abs, err := filepath.Abs(filepath.Join(workspace, DescriptorName))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(abs, `\`, "/"), nil
}

// Descriptor renders the test configuration, one TestEvent element per
// event in the given order.
func Descriptor(events []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(descriptorStart)
	for _, event := range events {
		buf.WriteString(eventStart)
		_ = xml.EscapeText(&buf, []byte(event))
		buf.WriteString(eventEnd)
	}
	buf.WriteString(descriptorEnd)
	return buf.Bytes()
}
