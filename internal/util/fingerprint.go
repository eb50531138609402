package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// fingerprintTail is how many trailing bytes a fingerprint covers
const fingerprintTail = 2048

// CalculateFileFingerprint calculates the CRC32 of the last 2KB of a file.
// Page files end with their last change entry, so the tail changes whenever
// the simulator rewrites a page.
func CalculateFileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	readSize := stat.Size()
	if readSize > fingerprintTail {
		readSize = fingerprintTail
	}
	if _, err := file.Seek(-readSize, io.SeekEnd); err != nil {
		return "", err
	}

	data := make([]byte, readSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return "", err
	}

	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data)), nil
}
