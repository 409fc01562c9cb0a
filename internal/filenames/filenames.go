// Package filenames composes and parses the table engine's on-disk file
// names, ported from the original's db/filename.cc.
package filenames

import (
	"fmt"
	"strconv"
	"strings"
)

// FileType classifies a name recognized by Parse.
type FileType int

const (
	TypeLog FileType = iota
	TypeTable    // legacy .sst extension
	TypeDBTable  // current .ldb extension
	TypeDescriptor
	TypeCurrent
	TypeTemp
	TypeInfoLog
	TypeLock
)

func numberName(dbname string, number uint64, suffix string) string {
	return fmt.Sprintf("%s/%06d.%s", dbname, number, suffix)
}

// LogFileName returns the write-ahead-log name for number.
func LogFileName(dbname string, number uint64) string {
	return numberName(dbname, number, "log")
}

// TableFileName returns the current (.ldb) SSTable file name for number.
func TableFileName(dbname string, number uint64) string {
	return numberName(dbname, number, "ldb")
}

// SSTTableFileName returns the legacy (.sst) SSTable file name for
// number, kept for backward-compatible lookups only.
func SSTTableFileName(dbname string, number uint64) string {
	return numberName(dbname, number, "sst")
}

// DescriptorFileName returns the MANIFEST file name for number.
func DescriptorFileName(dbname string, number uint64) string {
	return fmt.Sprintf("%s/MANIFEST-%06d", dbname, number)
}

// CurrentFileName returns the CURRENT file's path.
func CurrentFileName(dbname string) string {
	return dbname + "/CURRENT"
}

// LockFileName returns the LOCK file's path.
func LockFileName(dbname string) string {
	return dbname + "/LOCK"
}

// TempFileName returns the temporary file name used while building a
// file that will be renamed into place atomically.
func TempFileName(dbname string, number uint64) string {
	return numberName(dbname, number, "dbtmp")
}

// InfoLogFileName returns the current info log's path.
func InfoLogFileName(dbname string) string {
	return dbname + "/LOG"
}

// OldInfoLogFileName returns the rotated info log's path.
func OldInfoLogFileName(dbname string) string {
	return dbname + "/LOG.old"
}

// Parse classifies fname (the base name, no directory component) and
// extracts its embedded file number, if any. ok is false for anything
// that doesn't match a recognized pattern.
func Parse(fname string) (number uint64, ftype FileType, ok bool) {
	switch fname {
	case "CURRENT":
		return 0, TypeCurrent, true
	case "LOCK":
		return 0, TypeLock, true
	case "LOG", "LOG.old":
		return 0, TypeInfoLog, true
	}

	if strings.HasPrefix(fname, "MANIFEST-") {
		rest := fname[len("MANIFEST-"):]
		n, ok2 := consumeDecimalNumber(rest)
		if !ok2 || n.remainder != "" {
			return 0, 0, false
		}
		return n.value, TypeDescriptor, true
	}

	dot := strings.LastIndexByte(fname, '.')
	if dot < 0 {
		return 0, 0, false
	}
	prefix, suffix := fname[:dot], fname[dot+1:]
	n, ok2 := consumeDecimalNumber(prefix)
	if !ok2 || n.remainder != "" {
		return 0, 0, false
	}

	switch suffix {
	case "log":
		return n.value, TypeLog, true
	case "sst":
		return n.value, TypeTable, true
	case "ldb":
		return n.value, TypeDBTable, true
	case "dbtmp":
		return n.value, TypeTemp, true
	default:
		return 0, 0, false
	}
}

type decimalResult struct {
	value     uint64
	remainder string
}

// consumeDecimalNumber parses the longest leading run of ASCII digits in
// s as a uint64, matching the original's ConsumeDecimalNumber (which
// requires the whole prefix to be consumed by the caller — Parse checks
// n.remainder == "" itself, rather than this helper enforcing it, so it
// can be reused where trailing characters are expected).
func consumeDecimalNumber(s string) (decimalResult, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return decimalResult{}, false
	}
	v, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return decimalResult{}, false
	}
	return decimalResult{value: v, remainder: s[i:]}, true
}
