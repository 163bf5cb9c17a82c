package model

import "fmt"

// Message is a build log or validation message template.
type Message string

const (
	MsgPluginTitle           Message = "Tricentis Continuous Integration"
	MsgRunJob                Message = "Run %s"
	MsgClientPath            Message = "Tricentis client path"
	MsgEndpoint              Message = "Endpoint"
	MsgConfigurationFilePath Message = "Configuration file path"
	MsgResultsFile           Message = "Results file"
	MsgTestEvents            Message = "Test events"
	MsgPublishJUnit          Message = "Publish JUnit results"
	MsgDone                  Message = "Done"
	MsgExitCodeNotZero       Message = "Tricentis client exited with code %d"
	MsgParameterMissing      Message = "Parameter %q is not set"
	MsgSetJavaHome           Message = "JAVA_HOME must be set to run a .jar client"
	MsgRequired              Message = "Required"
	MsgFileNotFound          Message = "File not found"
	MsgOnlyOne               Message = "Either a configuration file path or test events must be set, not both"
	MsgAtMostOne             Message = "Configuration file path and test events can't be set at the same time"
	MsgDexOnly               Message = "Test events are supported in distributed execution only"
	MsgDescriptorFailed      Message = "Tricentis-CI Plugin: %s"
	MsgPermissionDenied      Message = "Permission %q denied"
)

// Format fills the template placeholders.
func (m Message) Format(args ...any) string {
	if len(args) == 0 {
		return string(m)
	}
	return fmt.Sprintf(string(m), args...)
}

func (m Message) String() string {
	return string(m)
}
