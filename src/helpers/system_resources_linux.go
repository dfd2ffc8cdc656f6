//go:build linux

package helpers

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// GetSystemMemoryMB returns total and available physical memory in MB.
func GetSystemMemoryMB() (total, available int) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer file.Close()

	return parseMeminfo(file)
}

func parseMeminfo(r io.Reader) (total, available int) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = kb / 1024
		case "MemAvailable:":
			available = kb / 1024
		}
	}
	return total, available
}
