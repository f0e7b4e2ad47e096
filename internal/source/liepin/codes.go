package liepin

import "github.com/Mouseminar/job-mcp/internal/source"

var cityCodes = source.CodeTable{Entries: []source.Code{
	{Name: "全国", Value: ""},
	{Name: "北京", Value: "010"},
	{Name: "上海", Value: "020"},
	{Name: "广州", Value: "050020"},
	{Name: "深圳", Value: "050090"},
	{Name: "杭州", Value: "070020"},
	{Name: "成都", Value: "280020"},
	{Name: "南京", Value: "060020"},
	{Name: "武汉", Value: "170020"},
	{Name: "西安", Value: "270020"},
	{Name: "苏州", Value: "060080"},
	{Name: "天津", Value: "030"},
	{Name: "重庆", Value: "040"},
}}

var experienceCodes = source.CodeTable{Entries: []source.Code{
	{Name: "不限", Value: ""},
	{Name: "1年以内", Value: "0$1"},
	{Name: "1-3年", Value: "1$3"},
	{Name: "3-5年", Value: "3$5"},
	{Name: "5-10年", Value: "5$10"},
	{Name: "10年以上", Value: "10$99"},
}}

var educationCodes = source.CodeTable{Entries: []source.Code{
	{Name: "不限", Value: ""},
	{Name: "大专", Value: "030"},
	{Name: "本科", Value: "040"},
	{Name: "硕士", Value: "050"},
	{Name: "博士", Value: "060"},
}}

// internCityCodes covers the web listing's dq filter, which knows more cities
// than the API table.
var internCityCodes = source.CodeTable{Entries: []source.Code{
	{Name: "北京", Value: "010"},
	{Name: "上海", Value: "020"},
	{Name: "广州", Value: "050020"},
	{Name: "深圳", Value: "050090"},
	{Name: "杭州", Value: "070020"},
	{Name: "成都", Value: "280020"},
	{Name: "南京", Value: "060020"},
	{Name: "武汉", Value: "170020"},
	{Name: "西安", Value: "270020"},
	{Name: "苏州", Value: "060080"},
	{Name: "天津", Value: "030"},
	{Name: "重庆", Value: "040"},
	{Name: "郑州", Value: "180020"},
	{Name: "长沙", Value: "210020"},
	{Name: "青岛", Value: "250060"},
	{Name: "东莞", Value: "050040"},
	{Name: "济南", Value: "250020"},
	{Name: "厦门", Value: "090040"},
	{Name: "福州", Value: "090020"},
	{Name: "合肥", Value: "190020"},
	{Name: "昆明", Value: "310020"},
	{Name: "大连", Value: "120040"},
	{Name: "沈阳", Value: "120020"},
	{Name: "哈尔滨", Value: "130020"},
	{Name: "长春", Value: "140020"},
	{Name: "南昌", Value: "200020"},
	{Name: "无锡", Value: "060040"},
	{Name: "宁波", Value: "070060"},
	{Name: "佛山", Value: "050050"},
	{Name: "珠海", Value: "050060"},
	{Name: "石家庄", Value: "160020"},
}}
