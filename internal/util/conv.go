package util

import (
	"strconv"
	"strings"
)

// MustParseInt 将字符串转换为整数，解析失败时返回 def
func MustParseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// LikeEscapeChar 各数据库方言都能接受的转义符
const LikeEscapeChar = "!"

// EscapeLike 转义 LIKE 通配符，用于标题模糊搜索
func EscapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
