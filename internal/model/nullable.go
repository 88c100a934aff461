package model

import (
	"bytes"
	"encoding/json"
)

// NullableInt64 は部分更新で「未指定」「nullで解除」「値を設定」を区別する。
// JSONのキーが存在する場合のみSetがtrueになる。
type NullableInt64 struct {
	Set   bool
	Value *int64
}

// SetInt64 は値を設定するNullableInt64を返す。
func SetInt64(v int64) NullableInt64 {
	return NullableInt64{Set: true, Value: &v}
}

// ClearInt64 はnullで解除するNullableInt64を返す。
func ClearInt64() NullableInt64 {
	return NullableInt64{Set: true}
}

// UnmarshalJSON はキーが存在する場合に呼ばれる。nullはValue=nilとして扱う。
func (n *NullableInt64) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
