package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore — хранение объектов в файлах на локальном диске.
// Ключ объекта отображается в относительный путь внутри dataDir.
type FileStore struct {
	// dataDir — корневая директория хранения объектов (FM_BLOB_DATA_DIR)
	dataDir string
}

// NewFileStore создаёт FileStore. Проверяет и создаёт директорию
// если она не существует.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Save записывает данные из reader под ключом key.
// maxSize > 0 ограничивает размер: при превышении возвращается ErrObjectTooLarge
// и существующий объект не изменяется.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Save(key string, reader io.Reader, maxSize int64) (int64, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return 0, fmt.Errorf("ошибка создания директории: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	src := reader
	if maxSize > 0 {
		src = io.LimitReader(reader, maxSize+1)
	}

	size, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if maxSize > 0 && size > maxSize {
		f.Close()
		os.Remove(tmpPath)
		return 0, ErrObjectTooLarge
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return size, nil
}

// Open открывает объект для чтения.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(key string) (*os.File, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", key, err)
	}
	return f, nil
}

// Stat возвращает размер объекта. ErrObjectNotFound — объекта нет.
func (fs *FileStore) Stat(key string) (int64, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("ошибка получения информации об объекте %s: %w", key, err)
	}
	if info.IsDir() {
		return 0, ErrObjectNotFound
	}
	return info.Size(), nil
}

// Delete удаляет объект. Возвращает nil если объект уже не существует.
func (fs *FileStore) Delete(key string) error {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// resolve преобразует ключ в путь на диске.
// Ключ не может выходить за пределы dataDir.
func (fs *FileStore) resolve(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(fs.dataDir, filepath.FromSlash(key)), nil
}

// ValidateKey проверяет ключ объекта: непустой относительный путь
// без сегментов "." и "..".
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: некорректный ключ объекта %q", ErrAccessDenied, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: некорректный ключ объекта %q", ErrAccessDenied, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.HasSuffix(seg, ".tmp") {
			return fmt.Errorf("%w: некорректный ключ объекта %q", ErrAccessDenied, key)
		}
	}
	return nil
}
