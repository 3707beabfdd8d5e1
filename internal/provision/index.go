package provision

import (
	"errors"
	"fmt"
)

// ErrUnknownReference 种子记录引用了未创建的模板/组织名
var ErrUnknownReference = errors.New("unknown reference")

// NameIndex 某一种实体的 name→id 映射
// 每个阶段返回后立即构建一次，后续阶段只查映射，不再线性扫描
type NameIndex struct {
	kind string
	ids  map[string]string
}

func NewNameIndex(kind string) *NameIndex {
	return &NameIndex{kind: kind, ids: map[string]string{}}
}

func (x *NameIndex) Add(name, id string) {
	x.ids[name] = id
}

// Lookup 精确匹配；miss 统一返回 ErrUnknownReference
func (x *NameIndex) Lookup(name string) (string, error) {
	id, ok := x.ids[name]
	if !ok {
		return "", fmt.Errorf("%w: no %s named %q", ErrUnknownReference, x.kind, name)
	}
	return id, nil
}

func (x *NameIndex) Len() int {
	return len(x.ids)
}
