package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/dagucloud/rollbuf/internal/logger"
	"github.com/dagucloud/rollbuf/internal/logger/tag"
	"github.com/dagucloud/rollbuf/internal/rollbuf"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const maxLineSize = 1024 * 1024

var errFollowStdin = errors.New("--follow needs at least one file")

func Tail() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "tail [flags] [file...]",
			Short: "Print the last lines of files",
			Long: `Print the last lines of each file, or of standard input when no file is given.

Only the newest lines are kept in memory while reading, so arbitrarily large
inputs can be tailed. With --follow the files are watched and appended lines
are printed as they arrive.

Example:
  rollbuf tail -n 20 /var/log/syslog
  rollbuf tail -f app.log
`,
		}, tailFlags, runTail,
	)
}

var tailFlags = []commandLineFlag{linesFlag, followFlag}

func runTail(ctx *Context, args []string) error {
	lines, set, err := ctx.IntParam(linesFlag.name)
	if err != nil {
		return err
	}
	if !set {
		lines = ctx.Config.Buffer.Size
	}
	follow := ctx.BoolParam(followFlag.name)
	out := ctx.Command.OutOrStdout()

	if len(args) == 0 {
		if follow {
			return errFollowStdin
		}
		buf, err := readLast(ctx.Command.InOrStdin(), lines, ctx.Config.Buffer.Capacity)
		if err != nil {
			return err
		}
		return printLines(out, buf.Values())
	}

	followed := make([]*followedFile, 0, len(args))
	for i, path := range args {
		if len(args) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}
			_, _ = fmt.Fprintf(out, "==> %s <==\n", path)
		}
		f, err := tailFile(path, lines, ctx.Config.Buffer.Capacity, follow, out)
		if err != nil {
			return err
		}
		logger.Debug(ctx, "Tailed file", tag.File(path), tag.Lines(lines))
		followed = append(followed, f)
	}

	if !follow {
		return nil
	}
	return followFiles(ctx, out, followed)
}

// readLast reads r to the end and keeps its last n lines.
func readLast(r io.Reader, n, capacity int) (*rollbuf.Buffer[string], error) {
	buf, err := rollbuf.NewWithCapacity[string](n, capacity)
	if err != nil {
		return nil, fmt.Errorf("invalid line count: %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		buf.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return buf, nil
}

func printLines(w io.Writer, lines iter.Seq[string]) error {
	for line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// tailFile prints the last n lines of path. When following, an unterminated
// last line is held back so that its continuation is printed with it.
func tailFile(path string, n, capacity int, follow bool, out io.Writer) (*followedFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	buf, err := readLast(file, n, capacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to get offset of %s: %w", path, err)
	}

	f := &followedFile{path: path, offset: offset}
	lines := buf.Values()
	if follow && buf.Count() > 0 {
		unterminated, err := endsUnterminated(file, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if unterminated {
			f.partial, _ = buf.Last()
			lines = firstN(buf, buf.Count()-1)
		}
	}
	if err := printLines(out, lines); err != nil {
		return nil, err
	}
	return f, nil
}

// endsUnterminated reports whether the byte before offset is not a newline.
func endsUnterminated(file *os.File, offset int64) (bool, error) {
	if offset == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, offset-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func firstN(buf *rollbuf.Buffer[string], n int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i, line := range buf.All() {
			if i >= n || !yield(line) {
				return
			}
		}
	}
}

// followedFile tracks how much of a file has been printed.
type followedFile struct {
	path    string
	offset  int64
	partial string
}

// readAppended returns the complete lines written since the last call.
// A trailing line without a newline is held back until it is finished.
func (f *followedFile) readAppended() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < f.offset {
		// truncated
		f.offset = 0
		f.partial = ""
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.offset += int64(len(data))

	lines := strings.Split(f.partial+string(data), "\n")
	f.partial = lines[len(lines)-1]
	return lines[:len(lines)-1], nil
}

func followFiles(ctx *Context, out io.Writer, files []*followedFile) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// fsnotify reports cleaned paths, so key by the cleaned argument.
	byPath := make(map[string]*followedFile, len(files))
	for _, f := range files {
		if err := watcher.Add(f.path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", f.path, err)
		}
		byPath[filepath.Clean(f.path)] = f
	}

	last := files[len(files)-1].path
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			f, ok := byPath[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			lines, err := f.readAppended()
			if err != nil {
				logger.Warn(ctx, "Failed to read appended lines", tag.File(f.path), tag.Error(err))
				continue
			}
			if len(lines) == 0 {
				continue
			}
			if len(files) > 1 && last != f.path {
				_, _ = fmt.Fprintf(out, "\n==> %s <==\n", f.path)
				last = f.path
			}
			for _, line := range lines {
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "Watch error", tag.Error(err))
		}
	}
}
