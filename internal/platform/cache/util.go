package cache

import (
	"time"
)

// marketOpenHour/minute は取引所ローカル時刻での寄り付きです。
const (
	marketOpenHour   = 9
	marketOpenMinute = 30
)

// TimeUntilNextMarketOpen は now から次の寄り付き（取引所ローカル 09:30）までの期間を返します。
func TimeUntilNextMarketOpen(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)

	next := time.Date(local.Year(), local.Month(), local.Day(), marketOpenHour, marketOpenMinute, 0, 0, loc)

	// 今日の寄り付きが既に過ぎている場合は翌日
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(local)
}

// TTLForDay は取引日 day のキャッシュ有効期限を返します。
// 当日以降の分足はまだ増えるので base を使い、過去日は次の寄り付きまで保持します。
func TTLForDay(day string, now time.Time, loc *time.Location, base time.Duration) time.Duration {
	today := now.In(loc).Format("2006-01-02")
	if day >= today {
		return base
	}
	ttl := TimeUntilNextMarketOpen(now, loc)
	if ttl < base {
		return base
	}
	return ttl
}
