package handler

import (
	"muslink-platform/internal/model"
)

// 哨兵值的本地化文案。存储和统计始终使用 model.UnknownLocation
var unknownLabels = map[string]string{
	"ru": "Неизвестно",
}

// localize 按语言替换统计结果中的 Unknown 桶名称
func localize(lang string, s *model.Summary) {
	label, ok := unknownLabels[lang]
	if !ok {
		return
	}
	for i := range s.ByCountry {
		if s.ByCountry[i].Country == model.UnknownLocation {
			s.ByCountry[i].Country = label
		}
	}
	for i := range s.ByCity {
		if s.ByCity[i].City == model.UnknownLocation {
			s.ByCity[i].City = label
		}
	}
}
