package types

import "time"

// Response is the standard API response wrapper
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo provides error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo provides response metadata
type MetaInfo struct {
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// InfoResponse describes the running process
type InfoResponse struct {
	Version   string    `json:"version"`
	GoVersion string    `json:"goVersion"`
	Platform  string    `json:"platform"`
	StartTime time.Time `json:"startTime"`
	Uptime    string    `json:"uptime"`
}

// === Link Types ===

// LinkStats are the byte counters of the open link
type LinkStats struct {
	BytesRead    uint64 `json:"bytesRead"`
	BytesWritten uint64 `json:"bytesWritten"`
	Writes       uint64 `json:"writes"`
	WriteErrors  uint64 `json:"writeErrors"`
}

// StatusResponse describes the serial link and the panel channel
type StatusResponse struct {
	Status        string    `json:"status"` // "Connected", "Disconnected" or "Lost"
	Port          string    `json:"port,omitempty"`
	BaudRate      int       `json:"baudRate,omitempty"`
	Parity        string    `json:"parity,omitempty"`
	StopBits      string    `json:"stopBits,omitempty"`
	Since         time.Time `json:"since,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
	Stats         LinkStats `json:"stats"`
	RxBuffered    int       `json:"rxBuffered"`
	Panels        int       `json:"panels"`
	PendingEvents int       `json:"pendingEvents"`
	DroppedEvents uint64    `json:"droppedEvents"`
}

// ConnectRequest overrides the configured connection parameters.
// Empty fields keep the configured value.
type ConnectRequest struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baudRate"`
	Parity   string `json:"parity"`
	StopBits string `json:"stopBits"`
}

// PortsResponse lists the serial ports found on the host
type PortsResponse struct {
	Ports []string `json:"ports"`
}

// === Data Types ===

// RxResponse is the receive buffer
type RxResponse struct {
	Text       string `json:"text"`
	Hex        string `json:"hex,omitempty"`
	Length     int    `json:"length"`
	Generation uint64 `json:"generation"`
}

// TxRequest carries data to send. Exactly one of Text or Hex is used;
// Hex is a string of hex pairs, spaces allowed.
type TxRequest struct {
	Text string `json:"text"`
	Hex  string `json:"hex"`
}

// TxResponse reports the queued byte count
type TxResponse struct {
	Queued int `json:"queued"`
}

// === Panel Types ===

// PanelResponse is one script panel
type PanelResponse struct {
	ID      uint64    `json:"id"`
	Name    string    `json:"name"`
	Text    string    `json:"text,omitempty"`
	Size    int       `json:"size"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// PanelListResponse lists the open panels
type PanelListResponse struct {
	Panels    []PanelResponse `json:"panels"`
	LinkLost  bool            `json:"linkLost"`
	LinkError string          `json:"linkError,omitempty"`
	Applied   uint64          `json:"applied"`
	Ignored   uint64          `json:"ignored"`
	Published time.Time       `json:"published"`
}

// === Script Types ===

// ScriptRequest runs a script file on the host or inline source
type ScriptRequest struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

// ScriptResponse confirms a queued script
type ScriptResponse struct {
	Script string `json:"script"`
	Queued bool   `json:"queued"`
}

// === Log Types ===

// LogEntryResponse is one captured log line
type LogEntryResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogsResponse contains log entries
type LogsResponse struct {
	Logs []LogEntryResponse `json:"logs"`
}
