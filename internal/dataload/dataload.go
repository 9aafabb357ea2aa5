// 包 dataload：静态输入文件的统一打开入口与启动期加载错误类型
package dataload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	ErrMissingColumn        = errors.New("missing required column")
	ErrMalformedRow         = errors.New("malformed row")
	ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")
	ErrNoFeatures           = errors.New("no usable features")
)

// 文档注释：启动期数据加载错误（DataLoadError）
// 背景：任何输入文件缺失、格式错误或缺列都在初始化阶段致命；错误必须能指出是哪个文件。
// 约束：Op 为简短动作名（open/read/parse/validate）；Err 保留原因以便 errors.Is 判定哨兵错误。
type Error struct {
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("data load %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap：构造加载错误；err 为 nil 时返回 nil
func Wrap(path, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Path: path, Op: op, Err: err}
}

// NormalizeCode：连接键规范化，仅去空白与大写（2a -> 2A），绝不按数字解析
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// 文档注释：打开输入文件，按魔数透明解压 gzip
// 背景：结果表通常以 .csv.gz 分发，但扩展名并不可靠；按前两个字节 0x1f 0x8b 判定。
// 约束：返回的 ReadCloser 关闭时同时关闭解压器与底层文件。
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Wrap(path, "open", err)
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, Wrap(path, "read", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, Wrap(path, "read", err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{f, zr}}, nil
	}
	return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
}
