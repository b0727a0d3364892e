package utils

import (
	"math"
	"sort"
	"strings"

	"coursehub/internal/models"
)

// PopularTagLimit 课程详情里展示的热门标签数量
const PopularTagLimit = 10

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// DimensionAverages 分项评分均值，没有任何数据的维度为 nil
type DimensionAverages struct {
	Workload *float64 `json:"workload"`
	Content  *float64 `json:"content"`
	Teaching *float64 `json:"teaching"`
}

// Round1 保留一位小数
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AverageScore 返回四舍五入到一位小数的平均分和评价数；没有评价时为 0, 0
func AverageScore(evals []models.Evaluation) (float64, int) {
	if len(evals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, e := range evals {
		sum += e.Score
	}
	return Round1(sum / float64(len(evals))), len(evals)
}

func AverageDimensions(evals []models.Evaluation) DimensionAverages {
	return DimensionAverages{
		Workload: meanOf(evals, func(e models.Evaluation) *float64 { return e.WorkloadScore }),
		Content:  meanOf(evals, func(e models.Evaluation) *float64 { return e.ContentScore }),
		Teaching: meanOf(evals, func(e models.Evaluation) *float64 { return e.TeachingScore }),
	}
}

func meanOf(evals []models.Evaluation, pick func(models.Evaluation) *float64) *float64 {
	var sum float64
	n := 0
	for _, e := range evals {
		if v := pick(e); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := Round1(sum / float64(n))
	return &avg
}

// SplitTags 按逗号拆分标签，去掉空白与空项
func SplitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags 规范化后再拼回逗号分隔
func JoinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		clean = append(clean, SplitTags(t)...)
	}
	return strings.Join(clean, ",")
}

// CountTags 统计多条标签字段的词频，按次数降序，次数相同按首次出现顺序
func CountTags(fields []string, limit int) []TagCount {
	index := make(map[string]int)
	var counts []TagCount
	for _, raw := range fields {
		for _, tag := range SplitTags(raw) {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func TagFrequency(evals []models.Evaluation, limit int) []TagCount {
	fields := make([]string, 0, len(evals))
	for _, e := range evals {
		fields = append(fields, e.Tags)
	}
	return CountTags(fields, limit)
}

// RatingDistribution 按分数取整分桶，1-5 五个桶总是存在
func RatingDistribution(evals []models.Evaluation) map[int]int {
	dist := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, e := range evals {
		bucket := int(e.Score)
		if _, ok := dist[bucket]; ok {
			dist[bucket]++
		}
	}
	return dist
}
