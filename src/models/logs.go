package models

// MLogStream identifies the originating stream of a container log line.
type MLogStream string

const (
	StreamStdout MLogStream = "stdout"
	StreamStderr MLogStream = "stderr"
)

// MLogLine is one demultiplexed line.
type MLogLine struct {
	Stream    MLogStream `json:"stream"`
	Text      string     `json:"text"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// MLogOptions selects the tail of a container's logs.
type MLogOptions struct {
	Tail  int
	Since string
}
