package main

import (
	api "bracketflow/cmd/bracketflow"
	"bracketflow/conf"
	"bracketflow/pkg/logger"
	"context"
	"flag"
	"log"
	"time"
)

// 启动服务（监听webhook）

/*
测试

BODY='{"symbol":"BTC/USDT","side":"long","leverage":10,"entry_price":"50000"}'
SECRET="ab12cd34ef56abcdef1234567890abcdef1234567890abcdef1234567890"
SIGNATURE=$(echo -n $BODY | openssl dgst -sha256 -hmac $SECRET | sed 's/^.* //')

curl -X POST http://localhost:12180/webhook \
  -H "Content-Type: application/json" \
  -H "X-Signature: $SIGNATURE" \
  -d "$BODY"
*/

func main() {
	path := flag.String("config", "conf/config.yaml", "config file path")
	flag.Parse()

	// 加载配置文件
	if err := conf.LoadConfig(*path); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig
	if err := logger.InitLogger(&appCfg.Log, appCfg.AppName); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	app, err := api.InitApp(context.Background(), &appCfg)
	if err != nil {
		logger.Fatalf("init app: %v", err)
	}

	// 创建并启动服务
	srv := api.NewServer(&appCfg)
	srv.Run(app.Routers...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Close(ctx)
}
