package api

// 文档注释：对外返回结构
// 背景：统一对外序列化模型，仅包含前端所需字段；地图产物本身由 render.Map 直接序列化。
// 约束：字段稳定；新增字段需评估前端依赖。
type candidateItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type locateResult struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Level      string  `json:"level"`
	Approx     bool    `json:"approx"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type health struct {
	Status      string `json:"status"`
	Commit      string `json:"commit"`
	Candidates  int    `json:"candidates"`
	Communes    int    `json:"communes"`
	Departments int    `json:"departments"`
}
