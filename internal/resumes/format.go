package resumes

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with 1024-based units and two decimals, e.g. "1.50 KB".
func FormatSize(bytes int64) string {
	value := float64(bytes)
	if value < 0 {
		value = 0
	}
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[i])
}
