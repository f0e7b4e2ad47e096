package boss

import "github.com/Mouseminar/job-mcp/internal/source"

const nationwide = "100010000"

var cityCodes = source.CodeTable{
	Entries: []source.Code{
		{Name: "全国", Value: nationwide},
		{Name: "北京", Value: "101010100"},
		{Name: "上海", Value: "101020100"},
		{Name: "广州", Value: "101280100"},
		{Name: "深圳", Value: "101280600"},
		{Name: "杭州", Value: "101210100"},
		{Name: "成都", Value: "101270100"},
		{Name: "南京", Value: "101190100"},
		{Name: "武汉", Value: "101200100"},
		{Name: "西安", Value: "101110100"},
		{Name: "苏州", Value: "101190400"},
		{Name: "天津", Value: "101030100"},
		{Name: "重庆", Value: "101040100"},
	},
	Default: nationwide,
}

var experienceCodes = source.CodeTable{
	Entries: []source.Code{
		{Name: "不限", Value: "0"},
		{Name: "应届生", Value: "108"},
		{Name: "1年以内", Value: "101"},
		{Name: "1-3年", Value: "102"},
		{Name: "3-5年", Value: "103"},
		{Name: "5-10年", Value: "104"},
		{Name: "10年以上", Value: "105"},
	},
}

var educationCodes = source.CodeTable{
	Entries: []source.Code{
		{Name: "初中及以下", Value: "209"},
		{Name: "中专/中技", Value: "208"},
		{Name: "高中", Value: "206"},
		{Name: "大专", Value: "202"},
		{Name: "本科", Value: "203"},
		{Name: "硕士", Value: "204"},
		{Name: "博士", Value: "205"},
	},
}
