package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
)

const module = "storage"

// WriteFileAtomic は同じディレクトリの一時ファイルに書き込んでから rename します。
// 書き込みに失敗した場合、path の既存の内容は変更されません。
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exception.NewBatchErrorf(module, exception.KindInternal, "ディレクトリ '%s' を作成できません", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return exception.NewBatchErrorf(module, exception.KindInternal, "一時ファイルを作成できません (%s)", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return exception.NewBatchErrorf(module, exception.KindInternal, "'%s' への書き込みに失敗しました", path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return exception.NewBatchErrorf(module, exception.KindInternal, "'%s' の同期に失敗しました", path, err)
	}
	if err = tmp.Close(); err != nil {
		return exception.NewBatchErrorf(module, exception.KindInternal, "'%s' のクローズに失敗しました", path, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return exception.NewBatchErrorf(module, exception.KindInternal, "'%s' の権限を設定できません", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return exception.NewBatchErrorf(module, exception.KindInternal, "'%s' への rename に失敗しました", path, err)
	}
	logger.Debugf("ファイル '%s' を書き込みました (%d bytes)。", path, len(data))
	return nil
}

// WriteJSON は JSON を 4 スペースでインデントしてアトミックに書き込みます。
// キーの順序や数値の表記は API が返したとおりに保持します。
func WriteJSON(path string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return exception.NewBatchErrorf(module, exception.KindFormat, "'%s' に書き込む JSON が不正です", path, err)
	}
	buf.WriteByte('\n')
	return WriteFileAtomic(path, buf.Bytes())
}

// ReadFile はファイルを読み込みます。ファイルが存在しない場合と読み込めない場合は FormatError を返します。
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, exception.NewBatchErrorf(module, exception.KindFormat, "ファイル '%s' が見つかりません", path, err)
	}
	if err != nil {
		return nil, exception.NewBatchErrorf(module, exception.KindFormat, "ファイル '%s' を読み込めません", path, err)
	}
	return data, nil
}
