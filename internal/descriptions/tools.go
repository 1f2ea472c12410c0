package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	RedactionUploadDescription = `Upload a PDF so it can be checked for cosmetic redactions.

**When to use:** The PDF is not in the server's directory, e.g. it came from an email or a user upload.

**Examples:**
• "Upload this court filing and check whether the blacked-out names can be read"
• "Upload the exported contract before sending it to the other party"

**Common workflows:**
1. redaction_upload → redaction_scan_token with the returned token

**Best practices:** Tokens are single use and expire; scan right after uploading. Send the PDF bytes base64 encoded.`

	RedactionScanTokenDescription = `Scan an uploaded PDF for redactions whose hidden text is still in the document.

**When to use:** After redaction_upload, to find black boxes, highlight annotations or pasted images that only cover text visually.

**Output:** Per page, every redaction candidate with its position and whether the text under it is RECOVERABLE, plus the recovered text. Totals include the share of redactions that leak.

**Examples:**
• "Scan the uploaded document and list every redaction that can be undone"
• "Check the token from the last upload, report as json"

**Best practices:** A token that was already scanned or has expired must be uploaded again. Any recoverable candidate means the redaction did not remove the underlying text.`

	RedactionScanFileDescription = `Scan a PDF in the configured directory for redactions whose hidden text is still in the document.

**When to use:** The PDF is already on the server, e.g. in a shared case folder.

**Examples:**
• "Check exhibits/exhibit-4.pdf for leaking redactions before filing"
• "Scan release/report.pdf and give me a yaml report"

**Best practices:** Paths are resolved inside the configured directory; paths that leave it are rejected.`

	RedactionServerInfoDescription = `Get server information, detection thresholds and the list of available tools.

**When to use:** To learn which directory can be scanned, the upload size limit and how candidates are detected.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"redaction_upload":      RedactionUploadDescription,
	"redaction_scan_token":  RedactionScanTokenDescription,
	"redaction_scan_file":   RedactionScanFileDescription,
	"redaction_server_info": RedactionServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all described tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
