package util

import "netcrypt/lib/util/logger"

var log = logger.GetLogger()
