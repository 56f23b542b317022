package config

type Config struct {
	System struct {
		IsProd                bool   // 是否为生产环境
		Listen                string // 监听地址
		DBConnectionString    string // Postgres 数据库的连接字符串
		RedisConnectionString string // Redis 数据库的连接字符串
		CORSOrigin            string // 允许跨域请求的管理面板来源，为空时不启用 CORS
	}
	Security struct {
		SignatureSecretKey string // 签名密钥，用于签发会话 cookie ，更新会导致旧有会话失效
	}
}
