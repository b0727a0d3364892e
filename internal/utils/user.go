package utils

import (
	"math/rand"
)

const (
	// DefaultNickname 首次登录时的占位昵称
	DefaultNickname = "微信用户"
	// AnonymousName 匿名评价/讨论展示的名字
	AnonymousName = "匿名用户"
)

var avatarEmojis = []string{"🌱", "🌿", "🍃", "🌾", "🎋", "🎍", "🌲", "🌳", "🐼", "🦊", "🐨", "🐸", "🦉", "📚", "🎓", "✏️"}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	return avatarEmojis[rand.Intn(len(avatarEmojis))]
}
