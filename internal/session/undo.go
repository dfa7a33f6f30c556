package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/cascadehq/cascade/internal/model"
	"github.com/cascadehq/cascade/internal/pathguard"
	"github.com/cascadehq/cascade/internal/project"
)

// Undo pops the most recent undo entry off sess's stack and reverts
// its file to the pre-edit lines (spec.md §4.8's "pop the stack, write
// PrevLines back to disk, reindex"). It refuses silently-wrong undos:
// if the file on disk no longer matches what the edit produced, the
// entry is reported as conflicted and left popped rather than
// reapplied over someone else's subsequent change.
func Undo(ctx context.Context, proj *project.Project, sess *model.Session) (model.UndoEntry, error) {
	entry, ok := sess.PopUndo()
	if !ok {
		return model.UndoEntry{}, model.NewError(model.ErrValidation, "nothing to undo", nil)
	}

	res := proj.Guard.Validate(entry.FilePath, pathguard.Options{})
	if res.Status != pathguard.Valid {
		return entry, model.NewError(model.ErrFile, res.Reason, nil)
	}

	current, err := os.ReadFile(res.Abs)
	if err != nil {
		return entry, model.NewError(model.ErrFile, "cannot read file to undo", err)
	}
	currentLines := splitLines(string(current))
	if hashLines(currentLines) != hashLines(entry.NewLines) {
		return entry, model.NewError(model.ErrConflict, "file modified since this edit; undo refused", nil)
	}

	content := strings.Join(entry.PrevLines, "\n")
	if len(entry.PrevLines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(res.Abs, []byte(content), 0o644); err != nil {
		return entry, model.NewError(model.ErrFile, "cannot write undo", err)
	}
	if err := proj.PutSnapshot(ctx, res.Rel, entry.PrevLines); err != nil {
		return entry, model.NewError(model.ErrStorage, "undo reindex failed", err)
	}

	return entry, nil
}

func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

func hashLines(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
