package domain

// WalletType is the closed set of backend categories a module can declare.
type WalletType string

const (
	WalletTypeInjected WalletType = "injected"
	WalletTypeBrowser  WalletType = "browser"
	WalletTypeHardware WalletType = "hardware"
	WalletTypeBridge   WalletType = "bridge"
)

// ModuleMetadata is display information for a configured wallet backend.
// Deprecated and Available are hints for selection UIs; the core pipeline does
// not interpret them.
type ModuleMetadata struct {
	Name        string
	Description string
	IconURL     string
	DownloadURL string
	Deprecated  bool
	Available   bool
}

// ModuleDescriptor is the static identity of a configured wallet backend.
// Descriptors are created at setup and read-only thereafter.
type ModuleDescriptor struct {
	ID       string
	Type     WalletType
	Metadata ModuleMetadata
}
