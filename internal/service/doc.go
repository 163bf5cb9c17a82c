// Package service runs the Tricentis CI client as a build step.
//
// A Step sequences one build:
//
//	Validating -> Building -> Running -> Publishing -> Succeeded | Failed
//
// Building delegates to a CommandBuilder (command.Builder), Running to a
// ProcessRunner (Runner) and Publishing to a ResultsPublisher
// (JUnitPublisher). All three are passed to NewStep, nothing is created
// lazily.
//
// Runner is a thin wrapper around os/exec:
//   - starts the process in the workspace with the build environment
//   - copies stdout into the build log
//   - scans stderr line by line, lines are logged and copied into the build log
//   - exposes the Result through a channel
//
// Invariants:
//   - At most one client process per Runner at a time.
//   - Results are published whatever the exit code, publishing errors win
//     over the exit code.
//   - There is no timeout, the host aborts a build by canceling the context.
package service
