// Copyright 2025 Certen Labs
//
// curvetree is the operator CLI for the curve tree store: inspect,
// rebuild, export, and import, against the same durable storage the
// service daemon uses. Exit codes follow spec.md §6: 0 success, 2
// invalid argument, 3 storage error, 4 integrity failure.

package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/certen-labs/curvetree/pkg/config"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
	"github.com/certen-labs/curvetree/pkg/tree"
)

const (
	exitSuccess         = 0
	exitInvalidArgument = 2
	exitStorageError    = 3
	exitIntegrityFail   = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: curvetree <tree-info|tree-rebuild|tree-export|tree-import> [args...]")
		return exitInvalidArgument
	}

	cfg := config.Load()
	store, err := storage.Open(storage.Kind(cfg.StorageKind), "curvetree", cfg.DataDir)
	if err != nil {
		reportError(err)
		return exitStorageError
	}

	treeCfg := tree.DefaultConfig()
	if cfg.TreeConfigPath != "" {
		loaded, err := tree.LoadConfig(cfg.TreeConfigPath)
		if err != nil {
			reportError(err)
			return exitInvalidArgument
		}
		treeCfg = loaded
	}

	curveTree, err := tree.New(store, treeCfg)
	if err != nil {
		reportError(err)
		return exitStorageError
	}

	switch args[0] {
	case "tree-info":
		return cmdTreeInfo(curveTree)
	case "tree-rebuild":
		return cmdTreeRebuild(curveTree)
	case "tree-export":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: curvetree tree-export <file>")
			return exitInvalidArgument
		}
		return cmdTreeExport(curveTree, args[1])
	case "tree-import":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: curvetree tree-import <file>")
			return exitInvalidArgument
		}
		return cmdTreeImport(curveTree, args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		return exitInvalidArgument
	}
}

func cmdTreeInfo(t *tree.CurveTree) int {
	count, err := t.OutputCount()
	if err != nil {
		reportError(err)
		return exitStorageError
	}
	root := t.GetRoot().Bytes()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]interface{}{
		"output_count": count,
		"depth":        t.Depth(),
		"root_hex":     hex.EncodeToString(root[:]),
	})
	return exitSuccess
}

// cmdTreeRebuild runs Rebuild then re-checks integrity. Per spec.md §6
// this command's own success/failure signal (0/1) is narrower than the
// general exit-code table (which reserves 4 for integrity failures
// surfaced elsewhere): a rebuild that still fails integrity afterward is
// reported here as exit 1, not 4, since the rebuild itself completed
// without a storage fault — the remaining problem is that the persisted
// leaves themselves don't agree with each other, which tree-rebuild is
// specifically the tool for diagnosing.
func cmdTreeRebuild(t *tree.CurveTree) int {
	if err := t.Rebuild(); err != nil {
		reportError(err)
		return exitStorageError
	}
	if err := t.VerifyIntegrity(); err != nil {
		reportError(err)
		return 1
	}
	return exitSuccess
}

func cmdTreeExport(t *tree.CurveTree, path string) int {
	count, err := t.OutputCount()
	if err != nil {
		reportError(err)
		return exitStorageError
	}

	f, err := os.Create(path)
	if err != nil {
		reportError(err)
		return exitStorageError
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var lenBuf [4]byte
	for i := uint64(0); i < count; i++ {
		tup, ok, err := t.GetOutput(i)
		if err != nil {
			reportError(err)
			return exitStorageError
		}
		if !ok {
			reportError(fmt.Errorf("curvetree: missing output at index %d", i))
			return exitStorageError
		}
		serialized := tup.Serialize()
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(serialized)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			reportError(err)
			return exitStorageError
		}
		if _, err := w.Write(serialized[:]); err != nil {
			reportError(err)
			return exitStorageError
		}
	}
	if err := w.Flush(); err != nil {
		reportError(err)
		return exitStorageError
	}
	return exitSuccess
}

func cmdTreeImport(t *tree.CurveTree, path string) int {
	count, err := t.OutputCount()
	if err != nil {
		reportError(err)
		return exitStorageError
	}
	if count != 0 {
		reportError(errors.New("curvetree: tree-import requires an empty tree"))
		return exitInvalidArgument
	}

	f, err := os.Open(path)
	if err != nil {
		reportError(err)
		return exitStorageError
	}
	defer f.Close()

	r := bufio.NewReader(f)
	builder := tree.NewBuilder(t.ConfigRef(), 256)
	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			reportError(err)
			return exitStorageError
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n != output.TupleSize {
			reportError(fmt.Errorf("curvetree: malformed export record length %d", n))
			return exitInvalidArgument
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			reportError(err)
			return exitStorageError
		}
		tup, err := output.Deserialize(buf)
		if err != nil {
			reportError(err)
			return exitInvalidArgument
		}
		if err := builder.Add(tup); err != nil {
			reportError(err)
			return exitInvalidArgument
		}
	}

	if _, err := builder.Finalize(t.Store()); err != nil {
		reportError(err)
		return exitStorageError
	}
	return exitSuccess
}

func reportError(err error) {
	kind, _ := kindOf(err)
	fmt.Fprintf(os.Stderr, "error: %s: %s\n", kind, err.Error())
}

// kindOf classifies err into the short kind tag printed on stderr and
// the exit code that matches spec.md §6's general table.
func kindOf(err error) (string, int) {
	switch {
	case errors.Is(err, tree.ErrIntegrityFailure):
		return "integrity_failure", exitIntegrityFail
	case errors.Is(err, tree.ErrOutOfRange):
		return "invalid_argument", exitInvalidArgument
	case errors.Is(err, tree.ErrTreeFull):
		return "invalid_argument", exitInvalidArgument
	case errors.Is(err, tree.ErrMissingSibling):
		return "storage_error", exitStorageError
	case errors.Is(err, output.ErrInvalidTuple), errors.Is(err, output.ErrInvalidLength):
		return "invalid_argument", exitInvalidArgument
	case errors.Is(err, storage.ErrBatchConflict), errors.Is(err, storage.ErrNoBatch), errors.Is(err, storage.ErrClosed):
		return "storage_error", exitStorageError
	default:
		var storageErr *storage.Error
		if errors.As(err, &storageErr) {
			return "storage_error", exitStorageError
		}
		return "internal_error", 1
	}
}
