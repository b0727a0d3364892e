package utils

import (
	"sort"
	"strings"
	"time"
)

const (
	DefaultRankLimit    = 10
	DefaultTagRankLimit = 20
)

// WindowStart 返回时间窗口的起点；week/month/year 之外的取值表示不限时间
func WindowStart(window string, now time.Time) (time.Time, bool) {
	var days int
	switch strings.ToLower(strings.TrimSpace(window)) {
	case "week":
		days = 7
	case "month":
		days = 30
	case "year":
		days = 365
	default:
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}

// NormalizeLimit limit <= 0 时回退到默认值
func NormalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

type scoreGroup[K comparable] struct {
	key     K
	sum     float64
	count   int
	members map[uint]struct{}
}

// Ranked 排行榜中的一项。Score 已保留一位小数，Mean 为原始均值
type Ranked[K comparable] struct {
	Rank        int
	Key         K
	Score       float64
	Mean        float64
	Count       int // 参与计算的评价数
	MemberCount int // 有评价的课程数
}

// Tally 按 key 累加评分。key 的顺序即首次 Seed/Add 的顺序，排序时作为并列项的次序
type Tally[K comparable] struct {
	order  []K
	groups map[K]*scoreGroup[K]
}

func NewTally[K comparable]() *Tally[K] {
	return &Tally[K]{groups: make(map[K]*scoreGroup[K])}
}

// Seed 预先登记 key 以固定次序，不计入评价
func (t *Tally[K]) Seed(key K) {
	t.group(key)
}

// Add 记一条评价，member 为评价所属课程
func (t *Tally[K]) Add(key K, member uint, score float64) {
	g := t.group(key)
	g.sum += score
	g.count++
	g.members[member] = struct{}{}
}

func (t *Tally[K]) group(key K) *scoreGroup[K] {
	g, ok := t.groups[key]
	if !ok {
		g = &scoreGroup[K]{key: key, members: make(map[uint]struct{})}
		t.groups[key] = g
		t.order = append(t.order, key)
	}
	return g
}

// Rank 去掉没有评价的项，按均值降序稳定排序，截断到 limit 后编号
func (t *Tally[K]) Rank(limit int) []Ranked[K] {
	out := make([]Ranked[K], 0, len(t.order))
	for _, key := range t.order {
		g := t.groups[key]
		if g.count == 0 {
			continue
		}
		mean := g.sum / float64(g.count)
		out = append(out, Ranked[K]{
			Key:         key,
			Mean:        mean,
			Score:       Round1(mean),
			Count:       g.count,
			MemberCount: len(g.members),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Mean > out[j].Mean
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
