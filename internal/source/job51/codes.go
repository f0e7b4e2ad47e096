package job51

import "github.com/Mouseminar/job-mcp/internal/source"

var cityCodes = source.CodeTable{Entries: []source.Code{
	{Name: "全国", Value: ""},
	{Name: "北京", Value: "010000"},
	{Name: "上海", Value: "020000"},
	{Name: "广州", Value: "030200"},
	{Name: "深圳", Value: "040000"},
	{Name: "杭州", Value: "080200"},
	{Name: "成都", Value: "090200"},
	{Name: "南京", Value: "070200"},
	{Name: "武汉", Value: "180200"},
	{Name: "西安", Value: "200200"},
	{Name: "苏州", Value: "070300"},
	{Name: "天津", Value: "050000"},
	{Name: "重庆", Value: "060000"},
}}

var experienceCodes = source.CodeTable{Entries: []source.Code{
	{Name: "不限", Value: ""},
	{Name: "在校生/应届生", Value: "01"},
	{Name: "1年以下", Value: "02"},
	{Name: "1-3年", Value: "03"},
	{Name: "3-5年", Value: "04"},
	{Name: "5-10年", Value: "05"},
	{Name: "10年以上", Value: "06"},
}}

var educationCodes = source.CodeTable{Entries: []source.Code{
	{Name: "不限", Value: ""},
	{Name: "初中及以下", Value: "01"},
	{Name: "高中/中专/中技", Value: "02"},
	{Name: "大专", Value: "03"},
	{Name: "本科", Value: "04"},
	{Name: "硕士", Value: "05"},
	{Name: "博士", Value: "06"},
}}
