package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadYesNo writes prompt to out and reads one answer line from in.
// Only "y" and "yes" (any case) confirm. A final line without a newline
// still counts; io.EOF is returned only when nothing was typed at all.
func ReadYesNo(prompt string, in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
