package db

import "strings"

// LikeEscape は LIKE の ESCAPE 句。MySQL と SQLite でバックスラッシュの扱いが違うので '!' を使う。
const LikeEscape = ` ESCAPE '!'`

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Contains は部分一致用のパターン。利用者の入力中の % と _ は文字として扱う。
func Contains(s string) string { return "%" + likeReplacer.Replace(s) + "%" }

// HasPrefix は前方一致用のパターン。
func HasPrefix(s string) string { return likeReplacer.Replace(s) + "%" }
