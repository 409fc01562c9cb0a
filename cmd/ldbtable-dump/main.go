// Command ldbtable-dump opens a single SSTable file read-only and prints
// its path and size, the footer magic number, and every key/value pair it
// contains, followed by the entry count. It does not print the footer's
// block handles or the index block's entries. It is a
// minimal analogue of the original's db/dumpfile.cc inspection tool,
// covering only the SSTable path (log-record and write-batch framing are
// external collaborators this module does not own).
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/AmrMurad1/ldbtable/internal/dbformat"
	"github.com/AmrMurad1/ldbtable/internal/filter"
	"github.com/AmrMurad1/ldbtable/internal/sstable"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <sstable-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := dumpFile(flag.Arg(0)); err != nil {
		log.Fatalf("ldbtable-dump: %v", err)
	}
}

func dumpFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	policy := filter.NewBloomFilterPolicy(10)
	table, err := sstable.Open(f, fi.Size(), policy)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	fmt.Printf("file: %s (%d bytes)\n", path, fi.Size())
	fmt.Printf("magic: 0x%016x\n\n", sstable.Magic)

	it := table.NewIterator()
	n := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		ik := dbformat.InternalKey(it.Key())
		fmt.Printf("%q @%d [%s] -> %s\n",
			ik.UserKey(), ik.Sequence(), valueTypeName(ik.ValueType()), previewValue(it.Value()))
		n++
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", path, err)
	}
	fmt.Printf("\n%d entries\n", n)
	return nil
}

func valueTypeName(vt dbformat.ValueType) string {
	if vt == dbformat.TypeDeletion {
		return "del"
	}
	return "put"
}

func previewValue(v []byte) string {
	const maxLen = 40
	if len(v) > maxLen {
		return hex.EncodeToString(v[:maxLen]) + "..."
	}
	return hex.EncodeToString(v)
}
