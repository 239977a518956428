//go:build windows

package opener

func command(path string) (string, []string) {
	return "rundll32", []string{"url.dll,FileProtocolHandler", path}
}
