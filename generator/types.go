package generator

// Draft 是模型产出的稿件（Markdown 形式），附带发布用的标题和摘要。
type Draft struct {
	Title    string `json:"title"`
	Digest   string `json:"digest"`
	Markdown string `json:"markdown"`
}
